package execute

import (
	"os"
	"sync"
	"time"
)

// watchdog enforces a wall-clock ceiling on one running process.
//
// Arm starts a one-shot timer on a side goroutine; if it fires before
// disarm, it sends the configured signal to the process and records the
// forced termination. It does not wait for the process to die: the executor
// still performs the normal reap so no zombie is left behind.
//
// Disarm and fire may race. The mutex plus the disarmed/fired flags
// guarantee exactly one terminal action: either the timer is cancelled
// before firing, or it fires and signals. Never both, never neither.
type watchdog struct {
	mu       sync.Mutex
	timer    *time.Timer
	disarmed bool
	fired    bool
}

// arm starts the timer. Must not be called twice without a disarm between.
func (w *watchdog) arm(proc *os.Process, d time.Duration, sig os.Signal, log Logger, cmdline string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.disarmed = false
	w.fired = false
	w.timer = time.AfterFunc(d, func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		if w.disarmed {
			return
		}
		w.fired = true

		log.Warn("stopping command after timeout",
			"cmd", cmdline,
			"signal", sig,
			"timeout", d,
		)
		if err := proc.Signal(sig); err != nil {
			// The process may have exited between the timer firing and the
			// signal being delivered. That is not the caller's problem.
			log.Debug("timeout signal not delivered",
				"cmd", cmdline,
				"error", err,
			)
		}
	})
}

// disarm cancels the timer if it has not yet fired. Safe to call when the
// timer already fired or was never armed; never errors.
func (w *watchdog) disarm() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.disarmed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

// firedTimeout reports whether the timer fired and signalled the process.
func (w *watchdog) firedTimeout() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fired
}
