package errors

import (
	"errors"
	"fmt"
	"strings"
)

// SubagentError is the base interface for all subagent errors.
type SubagentError interface {
	error
	IsSubagentError() bool
}

// Compile-time verification that all error types implement SubagentError.
var (
	_ SubagentError = (*ValidationError)(nil)
	_ SubagentError = (*AgentNotFoundError)(nil)
	_ SubagentError = (*SpawnError)(nil)
	_ SubagentError = (*ProcessError)(nil)
	_ SubagentError = (*EventDecodeError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrAmbiguousRequest indicates a request named both or neither of the
	// single-task and task-list forms.
	ErrAmbiguousRequest = errors.New("provide exactly one of: model + task, or tasks")

	// ErrUnknownModel indicates a requested model is not enabled in the registry.
	ErrUnknownModel = errors.New("unknown model")

	// ErrTooManyTasks indicates a task list longer than the batch maximum.
	ErrTooManyTasks = errors.New("too many parallel tasks")

	// ErrAborted indicates the subagent was terminated by cancellation.
	ErrAborted = errors.New("subagent was aborted")
)

// ValidationError indicates a request was rejected before anything was spawned.
type ValidationError struct {
	// Err is one of ErrAmbiguousRequest, ErrUnknownModel or ErrTooManyTasks.
	Err error
	// Detail names the offending value, if any.
	Detail string
	// AvailableModels lists the models that were enabled at dispatch time.
	AvailableModels []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder

	b.WriteString(e.Err.Error())

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	b.WriteString(". Available models: ")

	if len(e.AvailableModels) == 0 {
		b.WriteString("none")
	} else {
		b.WriteString(strings.Join(e.AvailableModels, ", "))
	}

	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// IsSubagentError implements SubagentError.
func (e *ValidationError) IsSubagentError() bool { return true }

// AgentNotFoundError indicates the agent binary was not found.
type AgentNotFoundError struct {
	Name          string
	SearchedPaths []string
}

func (e *AgentNotFoundError) Error() string {
	return fmt.Sprintf("agent binary %q not found in: %v", e.Name, e.SearchedPaths)
}

// IsSubagentError implements SubagentError.
func (e *AgentNotFoundError) IsSubagentError() bool { return true }

// SpawnError indicates the process could not be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsSubagentError implements SubagentError.
func (e *SpawnError) IsSubagentError() bool { return true }

// ProcessError indicates the agent process exited unsuccessfully.
type ProcessError struct {
	ExitCode int
	Signal   string
}

func (e *ProcessError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("agent process killed by %s", e.Signal)
	}

	return fmt.Sprintf("agent process exited with code %d", e.ExitCode)
}

// IsSubagentError implements SubagentError.
func (e *ProcessError) IsSubagentError() bool { return true }

// EventDecodeError indicates a line of agent output could not be decoded.
// This error preserves the original raw line.
type EventDecodeError struct {
	RawData string
	Err     error
}

func (e *EventDecodeError) Error() string {
	return fmt.Sprintf("failed to decode agent event: %v", e.Err)
}

func (e *EventDecodeError) Unwrap() error {
	return e.Err
}

// IsSubagentError implements SubagentError.
func (e *EventDecodeError) IsSubagentError() bool { return true }
