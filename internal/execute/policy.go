package execute

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

// ExitCodes is the set of child exit codes treated as success.
//
// The zero value accepts only exit code 0, the conventional default.
// Construct variants with Any (ignore the exit code entirely) or Allow.
//
// In YAML the policy accepts the same three shapes the original options did:
// a boolean (false disables validation, true means "only zero"), a single
// integer, or a list of integers.
type ExitCodes struct {
	ignore  bool
	allowed []int
}

// Any returns a policy that accepts every exit code.
func Any() ExitCodes {
	return ExitCodes{ignore: true}
}

// Allow returns a policy accepting exactly the given codes.
// Allow() with no codes is equivalent to the zero value (only zero).
func Allow(codes ...int) ExitCodes {
	return ExitCodes{allowed: codes}
}

// Accepts reports whether the given exit code satisfies the policy.
func (e ExitCodes) Accepts(code int) bool {
	if e.ignore {
		return true
	}
	if len(e.allowed) == 0 {
		return code == 0
	}
	for _, c := range e.allowed {
		if c == code {
			return true
		}
	}
	return false
}

// Ignored reports whether exit-code validation is disabled.
func (e ExitCodes) Ignored() bool {
	return e.ignore
}

// String renders the accepted set for logging.
func (e ExitCodes) String() string {
	if e.ignore {
		return "any"
	}
	if len(e.allowed) == 0 {
		return "[0]"
	}
	return fmt.Sprintf("%v", e.allowed)
}

// UnmarshalYAML accepts a bool, a single integer, or a sequence of integers.
func (e *ExitCodes) UnmarshalYAML(value *yaml.Node) error {
	var b bool
	if err := value.Decode(&b); err == nil && value.Tag == "!!bool" {
		*e = ExitCodes{ignore: !b}
		return nil
	}

	var single int
	if err := value.Decode(&single); err == nil && value.Tag == "!!int" {
		*e = ExitCodes{allowed: []int{single}}
		return nil
	}

	var list []int
	if err := value.Decode(&list); err == nil {
		*e = ExitCodes{allowed: list}
		return nil
	}

	return fmt.Errorf("check_exit_code must be a bool, an int, or a list of ints (got %q)", value.Tag)
}

// Policy configures how a command is executed and retried.
//
// Exactly one inter-attempt wait strategy may be active: either the explicit
// Interval/BackoffRate curve or the DelayOnRetry jitter. Configuring both is
// rejected with ErrBadPolicy before any process is spawned.
type Policy struct {
	// Check is the set of exit codes treated as success.
	Check ExitCodes

	// Attempts is the total number of spawn attempts. Must be >= 1.
	Attempts int

	// Interval and BackoffRate define the exponential wait between retries:
	// interval * rate^n for the n-th retry (n starting at 0). A zero
	// BackoffRate is normalised to 2.
	Interval    time.Duration
	BackoffRate float64

	// DelayOnRetry replaces the backoff curve with a short randomised jitter
	// sleep before each retry. Mutually exclusive with Interval.
	DelayOnRetry bool

	// Timeout, when positive, arms the watchdog for each attempt. A child
	// still running after this long is sent Signal.
	Timeout time.Duration

	// Signal is sent to the child on timeout. Defaults to SIGTERM, the
	// conventional graceful termination request.
	Signal os.Signal

	// LogLevel selects the severity for routine execution logs
	// (command start, per-attempt outcome, retry decisions).
	// Warnings for forced terminations are always logged at Warn.
	LogLevel slog.Level

	// OnSpawn and OnComplete are observer callbacks invoked with the process
	// handle at spawn and at completion. Purely for external instrumentation;
	// OnComplete runs on every exit path before the attempt is evaluated.
	OnSpawn    func(*os.Process)
	OnComplete func(*os.Process)

	// PreStart, when set, may adjust the constructed child (for example its
	// SysProcAttr) just before it is started.
	PreStart func(*exec.Cmd)
}

// DefaultPolicy returns a Policy with the conventional defaults: one
// attempt, one-second base interval doubling per retry, SIGTERM on timeout,
// only exit code 0 accepted, debug-level execution logs.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:    1,
		Interval:    time.Second,
		BackoffRate: 2,
		Signal:      syscall.SIGTERM,
		LogLevel:    slog.LevelDebug,
	}
}

// normalized validates the policy and fills defaulted fields, returning the
// copy the executor runs with.
func (p Policy) normalized() (Policy, error) {
	if p.Attempts < 1 {
		return p, fmt.Errorf("%w: attempts must be >= 1, got %d", ErrBadPolicy, p.Attempts)
	}
	if p.Interval < 0 {
		return p, fmt.Errorf("%w: interval must be >= 0, got %v", ErrBadPolicy, p.Interval)
	}
	if p.BackoffRate < 0 {
		return p, fmt.Errorf("%w: backoff rate must be >= 0, got %v", ErrBadPolicy, p.BackoffRate)
	}
	if p.Timeout < 0 {
		return p, fmt.Errorf("%w: timeout must be >= 0, got %v", ErrBadPolicy, p.Timeout)
	}
	if p.DelayOnRetry && p.Interval != 0 {
		return p, fmt.Errorf("%w: delay_on_retry and interval are mutually exclusive", ErrBadPolicy)
	}
	if p.BackoffRate == 0 {
		p.BackoffRate = 2
	}
	if p.Signal == nil {
		p.Signal = syscall.SIGTERM
	}
	return p, nil
}
