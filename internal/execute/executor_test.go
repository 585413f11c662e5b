package execute

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"
)

// fastRetry returns a policy with a negligible backoff so retry tests run
// quickly.
func fastRetry(attempts int) Policy {
	p := DefaultPolicy()
	p.Attempts = attempts
	p.Interval = time.Millisecond
	return p
}

// countingRecorder collects attempt statistics for assertions.
type countingRecorder struct {
	mu    sync.Mutex
	stats []AttemptStats
}

func (r *countingRecorder) RecordAttempt(stats AttemptStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, stats)
}

func (r *countingRecorder) all() []AttemptStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]AttemptStats(nil), r.stats...)
}

func TestExecute_Success(t *testing.T) {
	e := NewExecutor()
	res, err := e.Execute(context.Background(), Command{
		Args: []string{"/bin/echo", "-n", "hello"},
	}, DefaultPolicy())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got := string(res.Stdout); got != "hello" {
		t.Errorf("Stdout = %q, want %q", got, "hello")
	}
	if len(res.Stderr) != 0 {
		t.Errorf("Stderr = %q, want empty", res.Stderr)
	}
}

func TestExecute_SuccessFirstAttemptNoSleep(t *testing.T) {
	e := NewExecutor()
	rec := &countingRecorder{}
	e.AddRecorder(rec)

	p := DefaultPolicy()
	p.Attempts = 5
	p.Interval = time.Hour // would hang the test if any sleep happened

	start := time.Now()
	_, err := e.Execute(context.Background(), Command{Args: []string{"/bin/true"}}, p)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("Execute() took %v, a sleep must not precede the first attempt", elapsed)
	}
	if got := len(rec.all()); got != 1 {
		t.Errorf("attempts recorded = %d, want 1 (no further attempts after success)", got)
	}
}

func TestExecute_ShellMode(t *testing.T) {
	e := NewExecutor()
	res, err := e.Execute(context.Background(), Command{
		Args:  []string{"echo hello | tr a-z A-Z"},
		Shell: true,
	}, DefaultPolicy())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got := string(res.Stdout); got != "HELLO\n" {
		t.Errorf("Stdout = %q, want %q", got, "HELLO\n")
	}
}

func TestExecute_Input(t *testing.T) {
	e := NewExecutor()
	res, err := e.Execute(context.Background(), Command{
		Args:  []string{"/bin/cat"},
		Input: []byte("fed via stdin"),
	}, DefaultPolicy())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got := string(res.Stdout); got != "fed via stdin" {
		t.Errorf("Stdout = %q, want %q", got, "fed via stdin")
	}
}

func TestExecute_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	e := NewExecutor()
	res, err := e.Execute(context.Background(), Command{
		Args: []string{"/bin/pwd"},
		Dir:  dir,
	}, DefaultPolicy())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got := string(res.Stdout); got != dir+"\n" {
		t.Errorf("Stdout = %q, want %q", got, dir+"\n")
	}
}

func TestExecute_EnvOverlay(t *testing.T) {
	e := NewExecutor()
	res, err := e.Execute(context.Background(), Command{
		Args:  []string{"printenv RUNWARD_TEST_VAR"},
		Shell: true,
		Env:   map[string]string{"RUNWARD_TEST_VAR": "overlay-value"},
	}, DefaultPolicy())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got := string(res.Stdout); got != "overlay-value\n" {
		t.Errorf("Stdout = %q, want %q", got, "overlay-value\n")
	}
}

func TestExecute_ExitCodeViolationRetries(t *testing.T) {
	e := NewExecutor()
	rec := &countingRecorder{}
	e.AddRecorder(rec)

	_, err := e.Execute(context.Background(), Command{
		Args:  []string{"exit 1"},
		Shell: true,
	}, fastRetry(3))

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want *ExecError", err)
	}
	if execErr.ExitCode != 1 {
		t.Errorf("ExitCode = %d, want 1", execErr.ExitCode)
	}

	stats := rec.all()
	if len(stats) != 3 {
		t.Fatalf("attempts recorded = %d, want exactly 3 spawns", len(stats))
	}
	for i, s := range stats {
		if s.Attempt != i+1 {
			t.Errorf("stats[%d].Attempt = %d, want %d", i, s.Attempt, i+1)
		}
		if s.ExitCode != 1 {
			t.Errorf("stats[%d].ExitCode = %d, want 1", i, s.ExitCode)
		}
		if s.Succeeded {
			t.Errorf("stats[%d].Succeeded = true, want false", i)
		}
	}
}

func TestExecute_BackoffSleepsBetweenAttempts(t *testing.T) {
	e := NewExecutor()
	p := fastRetry(3)
	p.Interval = 50 * time.Millisecond
	p.BackoffRate = 1 // constant wait, two sleeps expected

	start := time.Now()
	_, err := e.Execute(context.Background(), Command{Args: []string{"/bin/false"}}, p)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Execute() = nil error, want failure")
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("Execute() took %v, want >= 100ms (two backoff sleeps)", elapsed)
	}
}

func TestExecute_AcceptedNonZeroCode(t *testing.T) {
	e := NewExecutor()
	p := DefaultPolicy()
	p.Check = Allow(0, 2)

	res, err := e.Execute(context.Background(), Command{
		Args:  []string{"echo -n partial; exit 2"},
		Shell: true,
	}, p)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if got := string(res.Stdout); got != "partial" {
		t.Errorf("Stdout = %q, want %q", got, "partial")
	}
}

func TestExecute_IgnoreExitCode(t *testing.T) {
	e := NewExecutor()
	p := DefaultPolicy()
	p.Check = Any()

	for _, script := range []string{"exit 0", "exit 1", "exit 137"} {
		res, err := e.Execute(context.Background(), Command{
			Args:  []string{"echo -n output; " + script},
			Shell: true,
		}, p)
		if err != nil {
			t.Fatalf("Execute(%q) error: %v", script, err)
		}
		if got := string(res.Stdout); got != "output" {
			t.Errorf("Execute(%q) Stdout = %q, want %q", script, got, "output")
		}
	}
}

func TestExecute_Timeout(t *testing.T) {
	e := NewExecutor()
	p := DefaultPolicy()
	p.Timeout = 100 * time.Millisecond

	start := time.Now()
	_, err := e.Execute(context.Background(), Command{
		Args: []string{"/bin/sleep", "60"},
	}, p)
	elapsed := time.Since(start)

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("Execute() error = %v, want *ExecError", err)
	}
	if execErr.ExitCode != UnknownExitCode {
		t.Errorf("ExitCode = %d, want %d for signalled child", execErr.ExitCode, UnknownExitCode)
	}
	if elapsed > 10*time.Second {
		t.Errorf("Execute() took %v, the watchdog did not terminate the child", elapsed)
	}
}

func TestExecute_TimeoutIsRetryable(t *testing.T) {
	e := NewExecutor()
	rec := &countingRecorder{}
	e.AddRecorder(rec)

	p := fastRetry(2)
	p.Timeout = 50 * time.Millisecond

	_, err := e.Execute(context.Background(), Command{
		Args: []string{"/bin/sleep", "60"},
	}, p)
	if err == nil {
		t.Fatal("Execute() = nil error, want timeout failure")
	}

	stats := rec.all()
	if len(stats) != 2 {
		t.Fatalf("attempts recorded = %d, want 2 (timeout is retryable)", len(stats))
	}
	for i, s := range stats {
		if !s.TimedOut {
			t.Errorf("stats[%d].TimedOut = false, want true", i)
		}
	}
}

func TestExecute_FastChildNoSpuriousTimeout(t *testing.T) {
	e := NewExecutor()
	p := DefaultPolicy()
	p.Timeout = 30 * time.Second

	// A child that finishes well inside the timeout must succeed with the
	// watchdog disarmed and no spurious signal reported.
	rec := &countingRecorder{}
	e.AddRecorder(rec)

	res, err := e.Execute(context.Background(), Command{Args: []string{"/bin/true"}}, p)
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res == nil {
		t.Fatal("Execute() result = nil")
	}
	if stats := rec.all(); len(stats) != 1 || stats[0].TimedOut {
		t.Errorf("stats = %+v, want one attempt with TimedOut=false", stats)
	}
}

func TestExecute_SpawnErrorRetriesAndSurfaces(t *testing.T) {
	e := NewExecutor()
	rec := &countingRecorder{}
	e.AddRecorder(rec)

	_, err := e.Execute(context.Background(), Command{
		Args: []string{"/nonexistent/binary-for-runward-test"},
	}, fastRetry(2))

	if err == nil {
		t.Fatal("Execute() = nil error, want spawn failure")
	}
	var execErr *ExecError
	if errors.As(err, &execErr) {
		t.Errorf("spawn failure surfaced as *ExecError, want the OS error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Execute() error = %v, want wrapped os.ErrNotExist", err)
	}

	stats := rec.all()
	if len(stats) != 2 {
		t.Fatalf("attempts recorded = %d, want 2", len(stats))
	}
	for i, s := range stats {
		if !s.SpawnFailed {
			t.Errorf("stats[%d].SpawnFailed = false, want true", i)
		}
	}
}

func TestExecute_ConfigErrorsSpawnNothing(t *testing.T) {
	e := NewExecutor()
	rec := &countingRecorder{}
	e.AddRecorder(rec)

	p := DefaultPolicy()
	p.Attempts = 0
	if _, err := e.Execute(context.Background(), Command{Args: []string{"/bin/true"}}, p); !errors.Is(err, ErrBadPolicy) {
		t.Errorf("Execute() error = %v, want ErrBadPolicy", err)
	}

	if _, err := e.Execute(context.Background(), Command{}, DefaultPolicy()); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("Execute() error = %v, want ErrEmptyCommand", err)
	}

	if got := len(rec.all()); got != 0 {
		t.Errorf("attempts recorded = %d, want 0 for configuration errors", got)
	}
}

func TestExecute_Observers(t *testing.T) {
	var mu sync.Mutex
	var spawned, completed []*os.Process

	p := fastRetry(2)
	p.OnSpawn = func(proc *os.Process) {
		mu.Lock()
		defer mu.Unlock()
		spawned = append(spawned, proc)
	}
	p.OnComplete = func(proc *os.Process) {
		mu.Lock()
		defer mu.Unlock()
		completed = append(completed, proc)
	}

	e := NewExecutor()
	_, err := e.Execute(context.Background(), Command{Args: []string{"/bin/false"}}, p)
	if err == nil {
		t.Fatal("Execute() = nil error, want failure")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(spawned) != 2 || len(completed) != 2 {
		t.Fatalf("observers: spawned %d, completed %d, want 2 and 2", len(spawned), len(completed))
	}
	// Every retry spawns a brand-new process.
	if spawned[0].Pid == spawned[1].Pid {
		t.Errorf("both attempts used pid %d, want distinct processes", spawned[0].Pid)
	}
}

func TestExecute_ContextCancelledDuringBackoff(t *testing.T) {
	e := NewExecutor()
	p := fastRetry(3)
	p.Interval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := e.Execute(ctx, Command{Args: []string{"/bin/false"}}, p)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Execute() error = %v, want context.DeadlineExceeded", err)
	}
	if time.Since(start) > 10*time.Second {
		t.Error("Execute() did not honour context cancellation during backoff sleep")
	}
}

func TestExecute_JitterStrategy(t *testing.T) {
	e := NewExecutor()
	p := DefaultPolicy()
	p.Attempts = 2
	p.Interval = 0
	p.DelayOnRetry = true

	start := time.Now()
	_, err := e.Execute(context.Background(), Command{Args: []string{"/bin/false"}}, p)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Execute() = nil error, want failure")
	}
	if elapsed < jitterMin {
		t.Errorf("Execute() took %v, want at least one jitter sleep of >= %v", elapsed, jitterMin)
	}
}

func TestExecute_PreStartHook(t *testing.T) {
	var sawProcessGroup bool
	p := DefaultPolicy()
	p.PreStart = func(c *exec.Cmd) {
		sawProcessGroup = c.SysProcAttr != nil && c.SysProcAttr.Setpgid
	}

	e := NewExecutor()
	if _, err := e.Execute(context.Background(), Command{Args: []string{"/bin/true"}}, p); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !sawProcessGroup {
		t.Error("PreStart hook did not observe the constructed child before start")
	}
}
