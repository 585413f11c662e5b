package mqtt

import "strings"

// Topic structure for runward events:
//
//	runward/executions/{command}/attempt   - one event per spawn attempt
//	runward/executions/{command}/result    - terminal outcome of a run
//
// {command} is the bare command name (no arguments), sanitised so it can
// never contain MQTT wildcards or level separators.
type Topics struct{}

// prefix is the root of all runward topics.
const prefix = "runward"

// Attempt returns the per-attempt event topic for a command.
func (Topics) Attempt(command string) string {
	return prefix + "/executions/" + sanitizeSegment(command) + "/attempt"
}

// Result returns the terminal outcome topic for a command.
func (Topics) Result(command string) string {
	return prefix + "/executions/" + sanitizeSegment(command) + "/result"
}

// sanitizeSegment makes a string safe to embed as a single topic level.
// Separator and wildcard characters are replaced, and an empty command
// becomes "unknown" rather than an empty level.
func sanitizeSegment(s string) string {
	if s == "" {
		return "unknown"
	}
	replacer := strings.NewReplacer(
		"/", "_",
		"+", "_",
		"#", "_",
		" ", "_",
	)
	return replacer.Replace(s)
}
