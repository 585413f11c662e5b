// Package retry re-runs an arbitrary unit of work when it fails with a
// matching error.
//
// Unlike the process executor, nothing here spawns processes: the caller
// supplies a function and a description of which errors are worth retrying,
// either as target sentinel errors (matched with errors.Is) or as a
// predicate. Waits between attempts follow the same exponential curve as
// command retries, via the shared backoff package.
//
// Example usage:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return bucket.Flush(ctx)
//	}, retry.Options{
//	    Retries: 3,
//	    On:      []error{ErrBusy, ErrUnavailable},
//	})
//
// After the final failed attempt the original error is returned unchanged,
// so callers can keep using errors.Is/errors.As on it.
package retry
