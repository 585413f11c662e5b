package backoff

import (
	"math"
	"time"
)

// Delay returns the wait duration before retry number attempt.
//
// The curve is interval * rate^attempt, where attempt starts at 0 for the
// first retry (i.e. the sleep before the second overall attempt). The result
// is clamped to be non-negative, so a zero or negative interval yields no
// wait rather than a negative one.
//
// Parameters:
//   - attempt: zero-based retry index
//   - interval: base wait duration (the multiplier)
//   - rate: exponential base; 1.0 gives a constant wait, 2.0 doubles each retry
//
// Returns:
//   - time.Duration: the computed wait, never negative
func Delay(attempt int, interval time.Duration, rate float64) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	wait := float64(interval) * math.Pow(rate, float64(attempt))
	if wait < 0 || math.IsNaN(wait) {
		return 0
	}
	if wait > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(wait)
}
