package task

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/subagent-go/internal/message"
)

// Status is the lifecycle position of a task's process.
type Status string

const (
	// StatusRunning means the process has not terminated yet.
	StatusRunning Status = "running"
	// StatusExited means the process exited on its own with ExitCode.
	StatusExited Status = "exited"
	// StatusSignaled means the process was killed by Signal.
	StatusSignaled Status = "signaled"
	// StatusSpawnFailed means the process never started.
	StatusSpawnFailed Status = "spawn_failed"
)

// Descriptor is a caller-supplied unit of work.
type Descriptor struct {
	Model   string   `json:"model"`
	Task    string   `json:"task"`
	Context any      `json:"context,omitempty"`
	Tools   []string `json:"tools,omitempty"`
}

// State is the live or completed record of one delegated agent run.
//
// A State is mutated only by its own Interpreter and by the runner that
// terminates it; readers on other goroutines must work on a Clone.
type State struct {
	ID           string             `json:"id"`
	Model        string             `json:"model"`
	Task         string             `json:"task"`
	Context      any                `json:"context,omitempty"`
	Status       Status             `json:"status"`
	ExitCode     int                `json:"exitCode"`
	Signal       string             `json:"signal,omitempty"`
	Messages     []*message.Message `json:"messages"`
	Partial      *message.Message   `json:"partial,omitempty"`
	Usage        message.Usage      `json:"usage"`
	StopReason   message.StopReason `json:"stopReason,omitempty"`
	ErrorMessage string             `json:"errorMessage,omitempty"`
	StartedAt    time.Time          `json:"startedAt"`
	FinishedAt   time.Time          `json:"finishedAt,omitzero"`
}

// NewState creates a running state for the descriptor.
func NewState(desc Descriptor) *State {
	return &State{
		ID:        ulid.Make().String(),
		Model:     desc.Model,
		Task:      desc.Task,
		Context:   desc.Context,
		Status:    StatusRunning,
		ExitCode:  -1,
		Messages:  make([]*message.Message, 0, 8),
		StartedAt: time.Now(),
	}
}

// Terminal reports whether the process has finished.
func (s *State) Terminal() bool {
	return s.Status != StatusRunning
}

// Finish moves a running state to a terminal status. It returns false and
// changes nothing if the state is already terminal.
func (s *State) Finish(status Status, exitCode int, signal string) bool {
	if s.Terminal() || status == StatusRunning {
		return false
	}

	s.Status = status
	s.ExitCode = exitCode
	s.Signal = signal
	s.FinishedAt = time.Now()

	return true
}

// Output returns the text of the last generated message.
func (s *State) Output() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if msg := s.Messages[i]; msg.IsGenerated() {
			if text := msg.Text(); text != "" {
				return text
			}
		}
	}

	return ""
}

// Snapshot returns a read-only view that shares completed messages and
// the partial message with s. Later appends to s are not visible in it.
func (s *State) Snapshot() State {
	out := *s
	out.Messages = s.Messages[:len(s.Messages):len(s.Messages)]

	return out
}

// Clone returns a deep copy that is safe to hand to other goroutines.
// Context is shared; it is immutable once submitted.
func (s *State) Clone() State {
	out := *s

	out.Messages = make([]*message.Message, len(s.Messages))
	for i, msg := range s.Messages {
		out.Messages[i] = msg.Clone()
	}

	out.Partial = s.Partial.Clone()

	return out
}
