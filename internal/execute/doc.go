// Package execute runs external commands with retry, timeout, and exit-code
// validation.
//
// The Executor spawns a child process, races its completion against an
// optional timeout watchdog, checks the exit code against the policy's
// accepted set, and on failure retries the whole spawn-run-validate cycle
// under exponential backoff. Captured stdout/stderr from the attempt that
// satisfied the policy are returned to the caller.
//
// Features:
//   - Bounded attempts with exponential backoff or randomised jitter between
//     retries (exactly one wait strategy per execution)
//   - Wall-clock timeout enforced by a per-attempt watchdog that signals the
//     child, with exactly-once disarm-or-fire semantics
//   - Exit-code policy: accept a set of codes, a single code, or any code
//   - Buffered capture of stdout/stderr, optional stdin payload
//   - Spawn/completion observer callbacks and pluggable attempt recorders
//     for instrumentation that never affects control flow
//
// Example usage:
//
//	exec := execute.NewExecutor()
//	pol := execute.DefaultPolicy()
//	pol.Attempts = 3
//	pol.Timeout = 30 * time.Second
//
//	res, err := exec.Execute(ctx, execute.Command{
//	    Args: []string{"rsync", "-a", src, dst},
//	}, pol)
//
// A failed execution surfaces exactly one error describing the final
// attempt: an *ExecError for an exit-code violation (a timeout shows up here
// too, as the forced-termination exit code) or the operating-system error
// when the child could not be spawned. Intermediate failures are logged,
// never returned.
package execute
