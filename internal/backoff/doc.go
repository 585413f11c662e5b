// Package backoff computes exponential retry delays.
//
// It is the single source of the wait curve used across runward: the process
// executor and the generic retry decorator both derive their inter-attempt
// sleeps from Delay, so command retries and arbitrary-work retries grow at
// the same rate.
//
// Delay is a pure function: no clock access, no randomness, no state.
// Randomised jitter (the delay-on-retry path in the executor) is a separate
// additive strategy and deliberately lives outside this package.
package backoff
