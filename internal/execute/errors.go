package execute

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadPolicy is returned for policy configurations that can never run:
// attempts below one, conflicting wait strategies, negative timeouts.
// It is raised before any process is spawned and is never retried.
// Check with errors.Is().
var ErrBadPolicy = errors.New("execute: invalid policy")

// ErrEmptyCommand is returned when a Command has no arguments.
var ErrEmptyCommand = errors.New("execute: command has no arguments")

// UnknownExitCode marks an attempt whose exit code could not be determined,
// typically because the child was terminated by a signal.
const UnknownExitCode = -1

// ExecError describes a command that ran but exited outside the accepted
// exit-code set. It carries the captured output and the resolved command so
// callers and logs have the full failure context.
type ExecError struct {
	// ExitCode is the child's exit code, or UnknownExitCode when the child
	// was killed by a signal (including a watchdog-forced termination).
	ExitCode int

	// Stdout and Stderr are the output captured up to process exit.
	Stdout []byte
	Stderr []byte

	// Cmd is the resolved command line that was executed.
	Cmd []string

	// Desc is an optional human description; a default is used when empty.
	Desc string
}

// Error formats the failure with command, exit code, and captured output.
func (e *ExecError) Error() string {
	desc := e.Desc
	if desc == "" {
		desc = "unexpected error while running command"
	}
	code := "-"
	if e.ExitCode != UnknownExitCode {
		code = fmt.Sprintf("%d", e.ExitCode)
	}
	return fmt.Sprintf("%s\ncommand: %s\nexit code: %s\nstdout: %q\nstderr: %q",
		desc, strings.Join(e.Cmd, " "), code, e.Stdout, e.Stderr)
}
