package mqtt

import (
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/nerrad567/runward/internal/execute"
)

// Logger defines the logging interface the event publisher needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// attemptEvent is the JSON payload published for each spawn attempt.
type attemptEvent struct {
	Cmd        string `json:"cmd"`
	Attempt    int    `json:"attempt"`
	ExitCode   int    `json:"exit_code"`
	DurationMs int64  `json:"duration_ms"`
	TimedOut   bool   `json:"timed_out"`
	Succeeded  bool   `json:"succeeded"`
	Timestamp  string `json:"timestamp"`
}

// resultEvent is the JSON payload published when a run finishes.
type resultEvent struct {
	Cmd       string `json:"cmd"`
	Attempts  int    `json:"attempts"`
	ExitCode  int    `json:"exit_code"`
	Succeeded bool   `json:"succeeded"`
	Timestamp string `json:"timestamp"`
}

// EventPublisher publishes execution events to the broker. It implements
// the executor's Recorder interface; publish failures are logged and
// swallowed so a broker outage never affects the run.
type EventPublisher struct {
	client *Client
	qos    byte
	log    Logger
}

// NewEventPublisher creates a publisher bound to a connected client.
func NewEventPublisher(client *Client, qos int, log Logger) *EventPublisher {
	return &EventPublisher{
		client: client,
		qos:    byte(qos),
		log:    log,
	}
}

// RecordAttempt publishes one spawn attempt event.
func (p *EventPublisher) RecordAttempt(stats execute.AttemptStats) {
	command := commandName(stats.Cmd)
	payload, err := json.Marshal(attemptEvent{
		Cmd:        command,
		Attempt:    stats.Attempt,
		ExitCode:   stats.ExitCode,
		DurationMs: stats.Duration.Milliseconds(),
		TimedOut:   stats.TimedOut,
		Succeeded:  stats.Succeeded,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.log.Warn("failed to encode attempt event", "error", err)
		return
	}

	topic := Topics{}.Attempt(command)
	if err := p.client.Publish(topic, payload, p.qos, false); err != nil {
		p.log.Warn("failed to publish attempt event", "topic", topic, "error", err)
	}
}

// PublishResult publishes the terminal outcome of a run.
func (p *EventPublisher) PublishResult(cmd []string, attempts, exitCode int, succeeded bool) {
	command := commandName(cmd)
	payload, err := json.Marshal(resultEvent{
		Cmd:       command,
		Attempts:  attempts,
		ExitCode:  exitCode,
		Succeeded: succeeded,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		p.log.Warn("failed to encode result event", "error", err)
		return
	}

	topic := Topics{}.Result(command)
	if err := p.client.Publish(topic, payload, p.qos, false); err != nil {
		p.log.Warn("failed to publish result event", "topic", topic, "error", err)
	}
}

// commandName extracts the bare command name from an argument vector.
func commandName(cmd []string) string {
	if len(cmd) == 0 {
		return ""
	}
	return filepath.Base(cmd[0])
}
