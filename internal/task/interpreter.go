package task

import (
	"log/slog"

	"github.com/wagiedev/subagent-go/internal/event"
	"github.com/wagiedev/subagent-go/internal/message"
)

// NotifyFunc receives a snapshot of the state after each mutation.
// It is called synchronously and must not block on I/O. The snapshot
// shares messages with the live state and must be treated as read-only.
type NotifyFunc func(State)

// Interpreter folds decoded events into a single State.
type Interpreter struct {
	log    *slog.Logger
	state  *State
	notify NotifyFunc
}

// NewInterpreter creates an interpreter that owns mutation of state.
// notify may be nil.
func NewInterpreter(log *slog.Logger, state *State, notify NotifyFunc) *Interpreter {
	return &Interpreter{
		log:    log.With("component", "interpreter", "task_id", state.ID),
		state:  state,
		notify: notify,
	}
}

// State returns the state being interpreted.
func (i *Interpreter) State() *State {
	return i.state
}

// Apply folds one event into the state and reports whether it changed.
func (i *Interpreter) Apply(ev event.Event) bool {
	switch e := ev.(type) {
	case *event.MessageEnd:
		i.applyMessageEnd(e.Message)
	case *event.MessageUpdate:
		i.state.Partial = e.Message
	case *event.DelegationResult:
		nested := e.Usage()
		nested.Turns = 0
		i.state.Usage.Add(nested)
		i.log.Debug("Folded nested delegation usage", "nested_tasks", len(e.Results))
	default:
		return false
	}

	i.Notify()

	return true
}

func (i *Interpreter) applyMessageEnd(msg *message.Message) {
	s := i.state

	s.Messages = append(s.Messages, msg)
	s.Partial = nil

	if !msg.IsGenerated() {
		return
	}

	s.Usage.Turns++

	if msg.Usage != nil {
		s.Usage.AddTokens(*msg.Usage)
	}

	if s.Model == "" && msg.Model != "" {
		s.Model = msg.Model
	}

	if msg.StopReason != "" {
		s.StopReason = msg.StopReason
	}

	if msg.ErrorMessage != "" {
		s.ErrorMessage = msg.ErrorMessage
	}
}

// Notify sends the current snapshot to the registered sink, if any.
func (i *Interpreter) Notify() {
	if i.notify != nil {
		i.notify(i.state.Snapshot())
	}
}
