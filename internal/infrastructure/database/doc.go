// Package database provides the SQLite connection layer for the execution
// history store.
//
// It wraps database/sql with the pragmas SQLite needs to behave under a
// single-writer workload: WAL journalling, a busy timeout, and foreign keys
// on. The connection pool is pinned to one open connection because SQLite
// supports only one writer at a time.
//
// Schema management lives with the history repository; this package only
// opens, checks, and closes the connection.
package database
