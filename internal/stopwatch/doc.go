// Package stopwatch provides monotonic elapsed-time measurement.
//
// A StopWatch times a piece of work using Go's monotonic clock, so wall-clock
// adjustments never produce negative or jumping readings. It supports
// start/stop/restart/resume, split captures while running, and optional
// expiry tracking when constructed with a duration.
//
// The executor uses one StopWatch per call to time and log each attempt.
//
// Thread Safety:
//   - Not safe for concurrent mutation. Share a watch across goroutines only
//     with external locking, or give each goroutine its own.
package stopwatch
