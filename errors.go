package subagent

import "github.com/wagiedev/subagent-go/internal/errors"

// Re-export error types from internal package

// SubagentError is the base interface for all errors of this package.
type SubagentError = errors.SubagentError

// ValidationError indicates a request was rejected before anything was spawned.
type ValidationError = errors.ValidationError

// AgentNotFoundError indicates the agent binary was not found.
type AgentNotFoundError = errors.AgentNotFoundError

// SpawnError indicates the agent process could not be started.
type SpawnError = errors.SpawnError

// ProcessError indicates the agent process exited unsuccessfully.
type ProcessError = errors.ProcessError

// EventDecodeError indicates a line of agent output could not be decoded.
type EventDecodeError = errors.EventDecodeError

// Re-export sentinel errors from internal package.
var (
	// ErrAmbiguousRequest indicates a request named both or neither of the
	// single-task and task-list forms.
	ErrAmbiguousRequest = errors.ErrAmbiguousRequest

	// ErrUnknownModel indicates a requested model is not enabled.
	ErrUnknownModel = errors.ErrUnknownModel

	// ErrTooManyTasks indicates a task list longer than MaxParallelTasks.
	ErrTooManyTasks = errors.ErrTooManyTasks

	// ErrAborted is the error text of a task terminated by cancellation.
	ErrAborted = errors.ErrAborted
)
