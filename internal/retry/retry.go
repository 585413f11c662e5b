package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/runward/internal/backoff"
)

// ErrBadOptions is returned for option sets that can never run. It is
// raised before the work is invoked and is never retried.
var ErrBadOptions = errors.New("retry: invalid options")

// Logger defines the logging interface for retry decisions.
type Logger interface {
	Debug(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}

// Options configures the retry behaviour.
type Options struct {
	// Retries is the total number of invocations. Must be >= 1.
	Retries int

	// Interval and BackoffRate define the exponential wait between
	// invocations: interval * rate^n for the n-th retry, n starting at 0.
	// Zero values default to one second and a rate of two.
	Interval    time.Duration
	BackoffRate float64

	// On lists target errors; a failure matching any of them (per
	// errors.Is) is retried. Ignored when RetryIf is set.
	On []error

	// RetryIf, when set, decides retryability instead of On.
	RetryIf func(error) bool

	// Logger receives retry decisions at debug level. Optional.
	Logger Logger
}

// normalized validates the options and fills defaults.
func (o Options) normalized() (Options, error) {
	if o.Retries < 1 {
		return o, fmt.Errorf("%w: retries must be >= 1, got %d", ErrBadOptions, o.Retries)
	}
	if o.Interval < 0 {
		return o, fmt.Errorf("%w: interval must be >= 0, got %v", ErrBadOptions, o.Interval)
	}
	if o.BackoffRate < 0 {
		return o, fmt.Errorf("%w: backoff rate must be >= 0, got %v", ErrBadOptions, o.BackoffRate)
	}
	if o.Interval == 0 {
		o.Interval = time.Second
	}
	if o.BackoffRate == 0 {
		o.BackoffRate = 2
	}
	if o.RetryIf == nil {
		targets := o.On
		o.RetryIf = func(err error) bool {
			for _, target := range targets {
				if errors.Is(err, target) {
					return true
				}
			}
			return false
		}
	}
	if o.Logger == nil {
		o.Logger = noopLogger{}
	}
	return o, nil
}

// Do invokes work, retrying on matching errors with exponential backoff, up
// to opts.Retries total invocations.
//
// A non-matching error returns immediately. After the final failed attempt
// the original error is returned unchanged. Cancellation of ctx during a
// backoff sleep returns ctx.Err().
func Do(ctx context.Context, work func(context.Context) error, opts Options) error {
	opts, err := opts.normalized()
	if err != nil {
		return err
	}

	var last error
	for attempt := 1; attempt <= opts.Retries; attempt++ {
		last = work(ctx)
		if last == nil {
			return nil
		}
		if !opts.RetryIf(last) {
			return last
		}
		if attempt == opts.Retries {
			opts.Logger.Debug("work failed, retries exhausted",
				"attempt", attempt,
				"error", last,
			)
			break
		}

		wait := backoff.Delay(attempt-1, opts.Interval, opts.BackoffRate)
		opts.Logger.Debug("work failed, retrying",
			"attempt", attempt,
			"wait", wait,
			"error", last,
		)
		if wait > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return last
}
