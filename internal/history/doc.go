// Package history persists command execution records in SQLite.
//
// Each run of a command becomes one executions row; every spawn attempt
// within it (including retries) becomes an attempts row. The Recorder type
// adapts the store to the executor's observer interface, so attempt stats
// flow into the database without the executor knowing where they go.
//
// History is strictly observational: a failed write is logged at warn level
// and the execution proceeds untouched.
package history
