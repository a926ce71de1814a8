// Package config provides configuration types for subagent orchestration.
package config

import (
	"context"
	"io"
)

// Command describes one agent process to start.
type Command struct {
	// Path is the configured agent path, or the bare agent name when no
	// path is configured. Resolving a name is up to the Spawner.
	Path string
	// Args are the command line arguments, excluding Path.
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env is the full environment of the process.
	Env []string
}

// Exit describes how a process terminated.
type Exit struct {
	// Code is the exit code, or -1 if the process was killed by a signal.
	Code int
	// Signal is the name of the terminating signal, if any (e.g. "SIGTERM").
	Signal string
	// Err is set when waiting on the process failed for another reason.
	Err error
}

// Process is a started agent process.
type Process interface {
	// Stdout returns the process's standard output stream.
	Stdout() io.Reader

	// Stderr returns the process's standard error stream.
	Stderr() io.Reader

	// Terminate asks the process to exit gracefully.
	Terminate() error

	// Kill forcefully stops the process.
	Kill() error

	// Wait blocks until the process exits. Callers must drain Stdout and
	// Stderr before calling Wait.
	Wait() Exit
}

// Spawner starts agent processes.
// Implement this to run agents somewhere other than a local subprocess, or
// to inject fakes in tests.
//
// The default implementation is subprocess.ExecSpawner, which looks the
// agent up locally and runs it in its own process group.
type Spawner interface {
	// Spawn starts the process. The context only bounds the start itself;
	// cancellation of a running process is handled by the caller.
	Spawn(ctx context.Context, cmd Command) (Process, error)
}
