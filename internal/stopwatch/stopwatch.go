package stopwatch

import (
	"errors"
	"fmt"
	"time"
)

// state tracks the watch lifecycle.
type state int

const (
	stateIdle state = iota
	stateStarted
	stateStopped
)

// Errors returned for operations invalid in the watch's current state.
var (
	// ErrNotStarted is returned when reading a watch that was never started.
	ErrNotStarted = errors.New("stopwatch: not started")

	// ErrNotStopped is returned when resuming a watch that is not stopped.
	ErrNotStopped = errors.New("stopwatch: not stopped")

	// ErrNoDuration is returned by Leftover on a watch with no duration set.
	ErrNoDuration = errors.New("stopwatch: no duration set")
)

// Split is one captured split point.
type Split struct {
	// Elapsed is the total elapsed time at the moment of the split.
	Elapsed time.Duration

	// Length is the time since the previous split (or since start for the
	// first split).
	Length time.Duration
}

// StopWatch measures elapsed time between start and stop.
//
// The zero value is not usable; create watches with New or NewWithDuration.
type StopWatch struct {
	duration  time.Duration
	startedAt time.Time
	stoppedAt time.Time
	state     state
	splits    []Split
}

// New returns an idle StopWatch with no expiry duration.
func New() *StopWatch {
	return &StopWatch{}
}

// NewWithDuration returns an idle StopWatch that Expired and Leftover judge
// against the given duration. A negative duration is rejected.
func NewWithDuration(d time.Duration) (*StopWatch, error) {
	if d < 0 {
		return nil, fmt.Errorf("stopwatch: duration must be >= 0, got %v", d)
	}
	return &StopWatch{duration: d}, nil
}

// Start starts the watch. Starting an already-started watch is a no-op.
// Any previously captured splits are discarded.
func (w *StopWatch) Start() *StopWatch {
	if w.state == stateStarted {
		return w
	}
	w.startedAt = time.Now()
	w.stoppedAt = time.Time{}
	w.state = stateStarted
	w.splits = nil
	return w
}

// Restart stops the watch if running and starts it again from zero.
func (w *StopWatch) Restart() *StopWatch {
	if w.state == stateStarted {
		w.stoppedAt = time.Now()
		w.state = stateStopped
	}
	return w.Start()
}

// Stop stops the watch. Stopping an already-stopped watch is a no-op.
func (w *StopWatch) Stop() error {
	if w.state == stateStopped {
		return nil
	}
	if w.state != stateStarted {
		return ErrNotStarted
	}
	w.stoppedAt = time.Now()
	w.state = stateStopped
	return nil
}

// Resume transitions a stopped watch back to running without resetting the
// start point.
func (w *StopWatch) Resume() error {
	if w.state != stateStopped {
		return ErrNotStopped
	}
	w.state = stateStarted
	return nil
}

// Elapsed returns how much time has passed since Start (or between Start and
// Stop for a stopped watch).
func (w *StopWatch) Elapsed() (time.Duration, error) {
	switch w.state {
	case stateStarted:
		return clamp(time.Since(w.startedAt)), nil
	case stateStopped:
		return clamp(w.stoppedAt.Sub(w.startedAt)), nil
	default:
		return 0, ErrNotStarted
	}
}

// ElapsedCapped is Elapsed bounded above by maximum.
func (w *StopWatch) ElapsedCapped(maximum time.Duration) (time.Duration, error) {
	elapsed, err := w.Elapsed()
	if err != nil {
		return 0, err
	}
	if elapsed > maximum {
		return clamp(maximum), nil
	}
	return elapsed, nil
}

// Split captures the elapsed time at this moment without stopping the watch.
// The returned Split records both the total elapsed time and the length since
// the previous split.
func (w *StopWatch) Split() (Split, error) {
	if w.state != stateStarted {
		return Split{}, ErrNotStarted
	}
	elapsed := clamp(time.Since(w.startedAt))
	length := elapsed
	if n := len(w.splits); n > 0 {
		length = clamp(elapsed - w.splits[n-1].Elapsed)
	}
	s := Split{Elapsed: elapsed, Length: length}
	w.splits = append(w.splits, s)
	return s, nil
}

// Splits returns all splits captured since the last Start.
func (w *StopWatch) Splits() []Split {
	return w.splits
}

// Leftover returns how long remains until the watch's duration elapses.
// The watch must be running and must have been created with a duration.
func (w *StopWatch) Leftover() (time.Duration, error) {
	if w.state != stateStarted {
		return 0, ErrNotStarted
	}
	if w.duration == 0 {
		return 0, ErrNoDuration
	}
	elapsed, err := w.Elapsed()
	if err != nil {
		return 0, err
	}
	return clamp(w.duration - elapsed), nil
}

// Expired reports whether the configured duration has elapsed.
// A watch without a duration never expires.
func (w *StopWatch) Expired() (bool, error) {
	if w.state == stateIdle {
		return false, ErrNotStarted
	}
	if w.duration == 0 {
		return false, nil
	}
	elapsed, err := w.Elapsed()
	if err != nil {
		return false, err
	}
	return elapsed > w.duration, nil
}

// HasStarted reports whether the watch is currently running.
func (w *StopWatch) HasStarted() bool {
	return w.state == stateStarted
}

// HasStopped reports whether the watch is currently stopped.
func (w *StopWatch) HasStopped() bool {
	return w.state == stateStopped
}

// clamp prevents a delta from going negative.
func clamp(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
