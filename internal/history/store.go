package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/runward/internal/execute"
	"github.com/nerrad567/runward/internal/infrastructure/database"
)

// ErrNotFound is returned when an execution record doesn't exist.
var ErrNotFound = errors.New("execution not found")

// schema creates the history tables. Attempts reference their execution so
// a run and its retries can be inspected together.
const schema = `
CREATE TABLE IF NOT EXISTS executions (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    cmd         TEXT    NOT NULL,
    started_at  TEXT    NOT NULL,
    finished_at TEXT,
    attempts    INTEGER NOT NULL DEFAULT 0,
    exit_code   INTEGER,
    timed_out   INTEGER NOT NULL DEFAULT 0,
    succeeded   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS attempts (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    execution_id  INTEGER NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
    attempt       INTEGER NOT NULL,
    exit_code     INTEGER NOT NULL,
    duration_ms   INTEGER NOT NULL,
    timed_out     INTEGER NOT NULL,
    spawn_failed  INTEGER NOT NULL,
    succeeded     INTEGER NOT NULL,
    recorded_at   TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_execution ON attempts(execution_id);
`

// Execution is one recorded command run, spanning all its attempts.
type Execution struct {
	ID         int64
	Cmd        string
	StartedAt  time.Time
	FinishedAt time.Time
	Attempts   int
	ExitCode   int
	TimedOut   bool
	Succeeded  bool
}

// Store persists execution history in SQLite.
type Store struct {
	db *database.DB
}

// NewStore creates a history store and ensures the schema exists.
func NewStore(ctx context.Context, db *database.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Begin records the start of an execution and returns its ID.
func (s *Store) Begin(ctx context.Context, cmd []string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (cmd, started_at) VALUES (?, ?)`,
		strings.Join(cmd, " "),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("recording execution start: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading execution id: %w", err)
	}
	return id, nil
}

// AddAttempt records one spawn attempt against an execution.
func (s *Store) AddAttempt(ctx context.Context, executionID int64, stats execute.AttemptStats) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts
		    (execution_id, attempt, exit_code, duration_ms, timed_out, spawn_failed, succeeded, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		executionID,
		stats.Attempt,
		stats.ExitCode,
		stats.Duration.Milliseconds(),
		stats.TimedOut,
		stats.SpawnFailed,
		stats.Succeeded,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}
	return nil
}

// Finish records the terminal outcome of an execution.
func (s *Store) Finish(ctx context.Context, executionID int64, attempts, exitCode int, timedOut, succeeded bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE executions
		    SET finished_at = ?, attempts = ?, exit_code = ?, timed_out = ?, succeeded = ?
		  WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		attempts,
		exitCode,
		timedOut,
		succeeded,
		executionID,
	)
	if err != nil {
		return fmt.Errorf("recording execution outcome: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking execution update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("execution %d: %w", executionID, ErrNotFound)
	}
	return nil
}

// Recent returns the most recently started executions, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Execution, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cmd, started_at, finished_at, attempts, exit_code, timed_out, succeeded
		   FROM executions
		  ORDER BY id DESC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying executions: %w", err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		var (
			e        Execution
			started  string
			finished sql.NullString
			exitCode sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.Cmd, &started, &finished, &e.Attempts, &exitCode, &e.TimedOut, &e.Succeeded); err != nil {
			return nil, fmt.Errorf("scanning execution: %w", err)
		}
		e.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished.Valid {
			e.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
		}
		if exitCode.Valid {
			e.ExitCode = int(exitCode.Int64)
		} else {
			e.ExitCode = execute.UnknownExitCode
		}
		execs = append(execs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating executions: %w", err)
	}
	return execs, nil
}
