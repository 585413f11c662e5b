package execute

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/runward/internal/backoff"
	"github.com/nerrad567/runward/internal/stopwatch"
)

// Jitter bounds for the delay-on-retry wait strategy.
const (
	jitterMin = 200 * time.Millisecond
	jitterMax = 2 * time.Second
)

// Logger defines the logging interface for the executor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Result holds the captured output of the attempt that satisfied the policy.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// AttemptStats describes one finished attempt, for recorders.
type AttemptStats struct {
	// Cmd is the command line that was run.
	Cmd []string

	// Attempt is the 1-based attempt number within this execution.
	Attempt int

	// ExitCode is the child's exit code, UnknownExitCode if it never ran or
	// was killed by a signal.
	ExitCode int

	// Duration is how long the attempt took, spawn to reap.
	Duration time.Duration

	// TimedOut reports whether the watchdog forcibly signalled the child.
	TimedOut bool

	// SpawnFailed reports whether the operating system refused to create
	// the process.
	SpawnFailed bool

	// Succeeded reports whether this attempt satisfied the exit-code policy.
	Succeeded bool
}

// Recorder receives per-attempt statistics. Implementations are purely
// observational: they must not assume any effect on the retry loop, and slow
// recorders slow the caller down.
type Recorder interface {
	RecordAttempt(stats AttemptStats)
}

// Executor runs commands under a Policy.
//
// An Executor holds no per-execution state; concurrent Execute calls do not
// interfere. Each call owns its own attempt counter, watchdog, and process
// handle.
type Executor struct {
	log       Logger
	recorders []Recorder
}

// NewExecutor creates an Executor with no logger and no recorders.
func NewExecutor() *Executor {
	return &Executor{log: noopLogger{}}
}

// SetLogger sets the logger for the executor.
func (e *Executor) SetLogger(log Logger) {
	e.log = log
}

// AddRecorder registers a recorder to be notified after every attempt.
// Must be called before Execute; recorders are not synchronised.
func (e *Executor) AddRecorder(r Recorder) {
	e.recorders = append(e.recorders, r)
}

// attemptOutcome is the explicit result of one attempt, inspected by the
// retry loop instead of driving control flow through error inspection.
type attemptOutcome struct {
	result *Result
	err    error
	stats  AttemptStats
}

// Execute runs the command under the policy: spawn, race against the
// watchdog, validate the exit code, and retry with backoff on failure.
//
// It blocks until the command succeeds, the attempts are exhausted, or ctx
// is cancelled during an inter-attempt sleep. On success it returns the
// captured stdout and stderr of the winning attempt. On failure it returns
// exactly one error describing the final attempt: an *ExecError for an
// exit-code violation, or the spawn-level error when the child could not be
// created. Policy violations surface as ErrBadPolicy before any spawn.
func (e *Executor) Execute(ctx context.Context, cmd Command, pol Policy) (*Result, error) {
	pol, err := pol.normalized()
	if err != nil {
		return nil, err
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	watch := stopwatch.New()
	remaining := pol.Attempts

	for attempt := 1; remaining > 0; attempt++ {
		remaining--
		watch.Restart()

		outcome := e.runAttempt(ctx, cmd, pol, watch)
		outcome.stats.Attempt = attempt
		e.record(outcome.stats)

		if outcome.result != nil {
			return outcome.result, nil
		}

		if remaining == 0 {
			e.logAt(pol.LogLevel, "command failed, not retrying",
				"cmd", cmd.String(),
				"attempt", attempt,
			)
			return nil, outcome.err
		}

		e.logAt(pol.LogLevel, "command failed, retrying",
			"cmd", cmd.String(),
			"attempt", attempt,
		)

		var wait time.Duration
		if pol.DelayOnRetry {
			wait = jitterMin + time.Duration(rand.Int63n(int64(jitterMax-jitterMin)))
		} else {
			// Retry index is zero-based: the sleep before the second
			// overall attempt uses rate^0.
			wait = backoff.Delay(attempt-1, pol.Interval, pol.BackoffRate)
		}
		if wait > 0 {
			e.log.Debug("sleeping before retry", "wait", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	// Unreachable: attempts >= 1 guarantees the loop returns.
	return nil, fmt.Errorf("%w: attempts exhausted without outcome", ErrBadPolicy)
}

// runAttempt performs one spawn-run-evaluate cycle.
func (e *Executor) runAttempt(ctx context.Context, cmd Command, pol Policy, watch *stopwatch.StopWatch) (out attemptOutcome) {
	// Yield after cleanup on every exit path so the OS can reclaim process
	// resources before the next spawn.
	defer runtime.Gosched()

	out.stats = AttemptStats{
		Cmd:      cmd.Args,
		ExitCode: UnknownExitCode,
	}

	e.logAt(pol.LogLevel, "running command",
		"cmd", cmd.String(),
		"shell", cmd.Shell,
	)

	child := buildChild(cmd)

	var stdout, stderr bytes.Buffer
	child.Stdout = &stdout
	child.Stderr = &stderr
	if cmd.Input != nil {
		// The stdin pipe is written and closed by Wait; the child sees EOF
		// after the payload.
		child.Stdin = bytes.NewReader(cmd.Input)
	}

	if pol.PreStart != nil {
		pol.PreStart(child)
	}

	if err := child.Start(); err != nil {
		out.stats.SpawnFailed = true
		out.stats.Duration = e.elapsed(watch)
		e.logAt(pol.LogLevel, "failed to spawn command",
			"cmd", cmd.String(),
			"error", err,
		)
		out.err = fmt.Errorf("spawning command: %w", err)
		return out
	}

	if pol.OnSpawn != nil {
		pol.OnSpawn(child.Process)
	}

	wd := &watchdog{}
	if pol.Timeout > 0 {
		wd.arm(child.Process, pol.Timeout, pol.Signal, e.log, cmd.String())
	}

	// The cleanup scope runs however the wait exits: disarm first, then the
	// completion observer, before the attempt is evaluated.
	waitErr := func() error {
		defer func() {
			wd.disarm()
			if pol.OnComplete != nil {
				pol.OnComplete(child.Process)
			}
		}()
		return child.Wait()
	}()

	elapsed := e.elapsed(watch)
	exitCode := UnknownExitCode
	if child.ProcessState != nil {
		exitCode = child.ProcessState.ExitCode()
	}
	timedOut := wd.firedTimeout()

	out.stats.ExitCode = exitCode
	out.stats.Duration = elapsed
	out.stats.TimedOut = timedOut

	e.logAt(pol.LogLevel, "command finished",
		"cmd", cmd.String(),
		"exit_code", exitCode,
		"elapsed", elapsed,
		"timed_out", timedOut,
	)

	if waitErr != nil && child.ProcessState == nil {
		// Wait failed before the child was reaped (stdin copy error and the
		// like). Retryable, same as a spawn failure.
		out.stats.SpawnFailed = true
		e.logAt(pol.LogLevel, "failed waiting for command",
			"cmd", cmd.String(),
			"error", waitErr,
		)
		out.err = fmt.Errorf("waiting for command: %w", waitErr)
		return out
	}

	if pol.Check.Accepts(exitCode) {
		out.stats.Succeeded = true
		out.result = &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
		return out
	}

	execErr := &ExecError{
		ExitCode: exitCode,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Cmd:      cmd.Args,
	}
	if timedOut {
		execErr.Desc = fmt.Sprintf("command terminated after %v timeout", pol.Timeout)
	}

	e.logAt(pol.LogLevel, "command exited outside accepted set",
		"cmd", cmd.String(),
		"exit_code", exitCode,
		"accepted", pol.Check.String(),
		"stdout", stdout.String(),
		"stderr", stderr.String(),
	)

	out.err = execErr
	return out
}

// buildChild constructs the child process from the command description.
//
// The child runs in its own process group so a watchdog signal cannot leak
// to the parent. Children exec'd by Go receive default dispositions for
// handled signals, so SIGPIPE reaches a non-cooperating child conventionally
// without a pre-exec reset.
func buildChild(cmd Command) *exec.Cmd {
	var child *exec.Cmd
	if cmd.Shell {
		child = exec.Command("/bin/sh", "-c", strings.Join(cmd.Args, " ")) //nolint:gosec // Shell mode is an explicit caller choice
	} else {
		child = exec.Command(cmd.Args[0], cmd.Args[1:]...) //nolint:gosec // Command comes from the caller, not external input
	}
	child.Dir = cmd.Dir
	child.Env = cmd.environ(os.Environ())
	child.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return child
}

// elapsed reads the attempt stopwatch. A stopwatch failure must never abort
// an otherwise-successful execution, so errors collapse to zero.
func (e *Executor) elapsed(watch *stopwatch.StopWatch) time.Duration {
	d, err := watch.Elapsed()
	if err != nil {
		return 0
	}
	return d
}

// record fans attempt statistics out to the registered recorders.
func (e *Executor) record(stats AttemptStats) {
	for _, r := range e.recorders {
		r.RecordAttempt(stats)
	}
}

// logAt routes routine execution logs to the policy's configured severity.
func (e *Executor) logAt(level slog.Level, msg string, args ...any) {
	switch {
	case level >= slog.LevelError:
		e.log.Error(msg, args...)
	case level >= slog.LevelWarn:
		e.log.Warn(msg, args...)
	case level >= slog.LevelInfo:
		e.log.Info(msg, args...)
	default:
		e.log.Debug(msg, args...)
	}
}
