package history

import (
	"context"
	"time"

	"github.com/nerrad567/runward/internal/execute"
)

// writeTimeout bounds each history write so a wedged disk cannot stall the
// retry loop.
const writeTimeout = 2 * time.Second

// Logger defines the logging interface the recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
}

// Recorder persists per-attempt stats for one execution. It implements the
// executor's Recorder interface; write failures are logged and swallowed so
// history can never affect the run itself.
type Recorder struct {
	store       *Store
	executionID int64
	log         Logger
}

// NewRecorder creates a recorder bound to an execution row.
func NewRecorder(store *Store, executionID int64, log Logger) *Recorder {
	return &Recorder{
		store:       store,
		executionID: executionID,
		log:         log,
	}
}

// RecordAttempt writes one attempt to the history store.
func (r *Recorder) RecordAttempt(stats execute.AttemptStats) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.store.AddAttempt(ctx, r.executionID, stats); err != nil {
		r.log.Warn("failed to record attempt history",
			"execution_id", r.executionID,
			"attempt", stats.Attempt,
			"error", err,
		)
	}
}
