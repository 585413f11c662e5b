package execute

import (
	"fmt"
	"sort"
	"strings"
)

// Command describes what to run. It is read-only to the executor: every
// retry spawns a brand-new process from the same Command.
type Command struct {
	// Args is the program and its arguments. With Shell set, the arguments
	// are joined and handed to /bin/sh -c instead of being exec'd directly.
	Args []string

	// Shell runs the command through the system shell.
	Shell bool

	// Dir is the working directory for the child. Empty inherits the
	// parent's directory.
	Dir string

	// Env is an environment overlay. Entries are added on top of the
	// parent's environment; an entry with a key already present wins.
	// Nil inherits the parent environment unchanged.
	Env map[string]string

	// Input, when non-nil, is written to the child's stdin, which is then
	// closed. Nil leaves stdin empty.
	Input []byte
}

// Validate checks that the command can be spawned.
func (c Command) Validate() error {
	if len(c.Args) == 0 {
		return ErrEmptyCommand
	}
	return nil
}

// String returns the command line for logging.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// environ resolves the overlay against the parent environment.
// Overlay keys are emitted in sorted order so spawns are deterministic.
// Returns nil when there is no overlay, which lets the child inherit the
// parent environment directly.
func (c Command) environ(parent []string) []string {
	if c.Env == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(parent)+len(keys))
	env = append(env, parent...)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, c.Env[k]))
	}
	return env
}
