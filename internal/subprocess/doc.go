// Package subprocess runs one delegated task as an external agent process.
//
// The Runner spawns the agent, decodes its newline-delimited JSON output
// into a task.State while the process is still running, and always returns
// a terminal state: spawn failures, nonzero exits, signal kills and
// cancellation are reported on the state rather than as errors.
package subprocess
