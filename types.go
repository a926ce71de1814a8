package subagent

import (
	"github.com/wagiedev/subagent-go/internal/config"
	"github.com/wagiedev/subagent-go/internal/message"
	"github.com/wagiedev/subagent-go/internal/models"
	"github.com/wagiedev/subagent-go/internal/task"
	"github.com/wagiedev/subagent-go/internal/usage"
)

// ===== Process spawning =====

// Spawner starts agent processes. Implement this to run agents somewhere
// other than a local subprocess, or to inject fakes in tests.
type Spawner = config.Spawner

// Process is a started agent process.
type Process = config.Process

// Command describes one agent process to start.
type Command = config.Command

// Exit describes how a process terminated.
type Exit = config.Exit

// ===== Task state =====

// TaskState is the live or completed record of one delegated agent run.
type TaskState = task.State

// Status is the lifecycle position of a task's process.
type Status = task.Status

// Task status constants.
const (
	StatusRunning     = task.StatusRunning
	StatusExited      = task.StatusExited
	StatusSignaled    = task.StatusSignaled
	StatusSpawnFailed = task.StatusSpawnFailed
)

// Usage holds token, cost and turn counters.
type Usage = message.Usage

// ===== Messages =====

// Message is one message emitted by a delegated agent.
type Message = message.Message

// Role identifies who produced a message.
type Role = message.Role

// StopReason records why the agent stopped generating.
type StopReason = message.StopReason

// Stop reason constants.
const (
	StopReasonStop    = message.StopReasonStop
	StopReasonLength  = message.StopReasonLength
	StopReasonToolUse = message.StopReasonToolUse
	StopReasonError   = message.StopReasonError
	StopReasonAborted = message.StopReasonAborted
)

// ===== Content Blocks =====

// ContentBlock is one block of message content.
type ContentBlock = message.ContentBlock

// TextBlock contains plain text.
type TextBlock = message.TextBlock

// ThinkingBlock contains the model's reasoning.
type ThinkingBlock = message.ThinkingBlock

// ToolCallBlock is a tool invocation requested by the agent.
type ToolCallBlock = message.ToolCallBlock

// ===== Models and ledger =====

// ModelRegistry reports the models enabled for delegation.
type ModelRegistry = models.Registry

// StaticModels is a fixed ModelRegistry.
type StaticModels = models.Static

// LedgerStore persists usage ledger entries across sessions.
type LedgerStore = usage.Store

// LedgerEntry is one folded task in the usage ledger.
type LedgerEntry = usage.Entry

// ResolveModel finds requested among available, ignoring case, and returns
// the registry's spelling.
func ResolveModel(available []string, requested string) (string, bool) {
	return models.Resolve(available, requested)
}

// FormatUsage renders usage compactly, e.g. "3 turns ↑1.2k ↓300 $0.0123".
func FormatUsage(u Usage) string {
	return usage.Format(u)
}

// ===== Requests and results =====

// Mode distinguishes single-task from batch results.
type Mode string

const (
	// ModeSingle is a one-task request.
	ModeSingle Mode = "single"
	// ModeParallel is a task-list request.
	ModeParallel Mode = "parallel"
)

// MaxParallelTasks is the largest accepted task list.
const MaxParallelTasks = config.MaxParallelTasks

// TaskRequest is one entry of a task list.
type TaskRequest struct {
	Model   string   `json:"model" jsonschema:"model to run the task on, as provider/id"`
	Task    string   `json:"task" jsonschema:"instruction for the subagent"`
	Context any      `json:"context,omitempty" jsonschema:"optional context passed ahead of the task"`
	Tools   []string `json:"tools,omitempty" jsonschema:"tools the subagent may use; all when omitted"`
}

// Request asks for either one task (Model and Task) or a list (Tasks).
// Setting both or neither is a validation error.
type Request struct {
	Model   string        `json:"model,omitempty" jsonschema:"model for a single task, as provider/id"`
	Task    string        `json:"task,omitempty" jsonschema:"instruction for a single task"`
	Context any           `json:"context,omitempty" jsonschema:"optional context passed ahead of the task"`
	Tools   []string      `json:"tools,omitempty" jsonschema:"tools the subagent may use; all when omitted"`
	Tasks   []TaskRequest `json:"tasks,omitempty" jsonschema:"independent tasks to run in parallel instead of a single task"`
}

// Result is the outcome of one request. Results are in submission order.
type Result struct {
	Mode            Mode        `json:"mode"`
	Results         []TaskState `json:"results"`
	AvailableModels []string    `json:"availableModels"`
}

// Succeeded returns the number of tasks that did not fail.
func (r *Result) Succeeded() int {
	n := 0

	for i := range r.Results {
		if !task.Failed(&r.Results[i]) {
			n++
		}
	}

	return n
}

// IsError reports whether any task failed.
func (r *Result) IsError() bool {
	return r.Succeeded() < len(r.Results)
}

// TotalUsage sums the usage of every task.
func (r *Result) TotalUsage() Usage {
	return usage.Sum(r.Results)
}

// Failed reports whether a terminal task state counts as a failure: a
// nonzero exit status, or an "error" or "aborted" stop reason.
func Failed(s *TaskState) bool {
	return task.Failed(s)
}

// Aborted reports whether a task was terminated by cancellation.
func Aborted(s *TaskState) bool {
	return task.Aborted(s)
}

// Progress is a coarse snapshot of a running request.
//
// Tasks has one entry per submitted task in submission order. An entry for a
// task that has not started yet has an empty Status.
type Progress struct {
	Mode    Mode        `json:"mode"`
	Done    int         `json:"done"`
	Running int         `json:"running"`
	Total   int         `json:"total"`
	Tasks   []TaskState `json:"tasks"`
}
