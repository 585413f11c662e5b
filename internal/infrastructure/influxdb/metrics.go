package influxdb

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/runward/internal/execute"
)

// attemptMeasurement is the measurement name for per-attempt points.
const attemptMeasurement = "command_attempt"

// RecordAttempt writes one spawn attempt as a metric point. It implements
// the executor's Recorder interface; the write is batched and non-blocking,
// so a slow or unreachable server never stalls the retry loop.
func (c *Client) RecordAttempt(stats execute.AttemptStats) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newAttemptPoint(stats, time.Now()))
}

// newAttemptPoint converts attempt stats into an InfluxDB point.
//
// Only the command name and outcome become tags: full command lines have
// unbounded cardinality and belong in the history store, not the index.
func newAttemptPoint(stats execute.AttemptStats, ts time.Time) *write.Point {
	command := ""
	if len(stats.Cmd) > 0 {
		command = stats.Cmd[0]
	}

	return influxdb2.NewPoint(
		attemptMeasurement,
		map[string]string{
			"command": command,
			"outcome": outcomeTag(stats),
		},
		map[string]interface{}{
			"attempt":     stats.Attempt,
			"exit_code":   stats.ExitCode,
			"duration_ms": stats.Duration.Milliseconds(),
		},
		ts,
	)
}

// outcomeTag classifies an attempt for the outcome tag.
func outcomeTag(stats execute.AttemptStats) string {
	switch {
	case stats.Succeeded:
		return "success"
	case stats.TimedOut:
		return "timeout"
	case stats.SpawnFailed:
		return "spawn_failed"
	default:
		return "failure"
	}
}
