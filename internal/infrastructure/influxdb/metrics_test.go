package influxdb

import (
	"testing"
	"time"

	"github.com/nerrad567/runward/internal/execute"
)

func pointTags(t *testing.T, stats execute.AttemptStats) map[string]string {
	t.Helper()
	p := newAttemptPoint(stats, time.Now())
	tags := make(map[string]string)
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	return tags
}

func TestNewAttemptPoint_Fields(t *testing.T) {
	ts := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	p := newAttemptPoint(execute.AttemptStats{
		Cmd:      []string{"rsync", "-a", "/src", "/dst"},
		Attempt:  2,
		ExitCode: 1,
		Duration: 1500 * time.Millisecond,
	}, ts)

	if p.Name() != attemptMeasurement {
		t.Errorf("Name() = %q, want %q", p.Name(), attemptMeasurement)
	}
	if !p.Time().Equal(ts) {
		t.Errorf("Time() = %v, want %v", p.Time(), ts)
	}

	fields := make(map[string]interface{})
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if got := fields["attempt"]; got != int64(2) {
		t.Errorf("attempt field = %v (%T), want 2", got, got)
	}
	if got := fields["exit_code"]; got != int64(1) {
		t.Errorf("exit_code field = %v (%T), want 1", got, got)
	}
	if got := fields["duration_ms"]; got != int64(1500) {
		t.Errorf("duration_ms field = %v (%T), want 1500", got, got)
	}
}

func TestNewAttemptPoint_CommandTagIsNameOnly(t *testing.T) {
	tags := pointTags(t, execute.AttemptStats{
		Cmd: []string{"curl", "-fsSL", "https://example.com/very/long/url"},
	})

	// Arguments carry unbounded cardinality and must not become tags.
	if tags["command"] != "curl" {
		t.Errorf("command tag = %q, want curl", tags["command"])
	}
}

func TestOutcomeTag(t *testing.T) {
	tests := []struct {
		name  string
		stats execute.AttemptStats
		want  string
	}{
		{"success", execute.AttemptStats{Succeeded: true}, "success"},
		{"timeout", execute.AttemptStats{TimedOut: true}, "timeout"},
		{"spawn failure", execute.AttemptStats{SpawnFailed: true}, "spawn_failed"},
		{"exit code failure", execute.AttemptStats{ExitCode: 1}, "failure"},
		{"success wins over timeout flag", execute.AttemptStats{Succeeded: true, TimedOut: true}, "success"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := outcomeTag(tt.stats); got != tt.want {
				t.Errorf("outcomeTag() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordAttempt_DisconnectedClientIsNoop(t *testing.T) {
	var c Client

	// Must not panic or touch the nil write API.
	c.RecordAttempt(execute.AttemptStats{Cmd: []string{"true"}, Succeeded: true})
}
