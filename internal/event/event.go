package event

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wagiedev/subagent-go/internal/errors"
	"github.com/wagiedev/subagent-go/internal/message"
)

// Wire names of the recognized event kinds.
const (
	TypeMessageEnd    = "message_end"
	TypeMessageUpdate = "message_update"
	TypeToolResultEnd = "tool_result_end"
)

// DelegationToolName is the tool whose results carry nested batch usage.
const DelegationToolName = "subagent"

// Event is one decoded line of agent output.
// Use a type switch to determine the concrete kind.
type Event interface {
	EventType() string
}

// Compile-time verification that all event kinds implement Event.
var (
	_ Event = (*MessageEnd)(nil)
	_ Event = (*MessageUpdate)(nil)
	_ Event = (*DelegationResult)(nil)
	_ Event = (*Unknown)(nil)
)

// MessageEnd carries a completed message.
type MessageEnd struct {
	Message *message.Message
}

// EventType implements the Event interface.
func (e *MessageEnd) EventType() string { return TypeMessageEnd }

// MessageUpdate carries the current in-flight message. It supersedes any
// earlier update wholesale.
type MessageUpdate struct {
	Message *message.Message
}

// EventType implements the Event interface.
func (e *MessageUpdate) EventType() string { return TypeMessageUpdate }

// DelegationResult carries the outcome of a batch the agent delegated itself.
type DelegationResult struct {
	Mode    string
	Results []DelegatedTask
}

// EventType implements the Event interface.
func (e *DelegationResult) EventType() string { return TypeToolResultEnd }

// Usage sums the usage of every nested task.
func (e *DelegationResult) Usage() message.Usage {
	var total message.Usage

	for _, r := range e.Results {
		total.Add(r.Usage)
	}

	return total
}

// DelegatedTask is the part of a nested task state the orchestrator folds in.
type DelegatedTask struct {
	Model string        `json:"model"`
	Usage message.Usage `json:"usage"`
}

// Unknown is any event kind the orchestrator does not interpret.
type Unknown struct {
	Type string
}

// EventType implements the Event interface.
func (e *Unknown) EventType() string { return e.Type }

// envelope is the union of all fields the recognized kinds read.
type envelope struct {
	Type     string           `json:"type"`
	Message  *message.Message `json:"message"`
	ToolName string           `json:"toolName"`
	Details  json.RawMessage  `json:"details"`
}

type delegationDetails struct {
	Mode    string          `json:"mode"`
	Results []DelegatedTask `json:"results"`
}

// Decode parses one line of agent output.
//
// Returns an EventDecodeError if the line is not a JSON object or a
// recognized kind is missing its payload. Unrecognized kinds decode to
// Unknown without error.
func Decode(line []byte) (Event, error) {
	line = bytes.TrimSpace(line)

	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, &errors.EventDecodeError{RawData: string(line), Err: err}
	}

	switch env.Type {
	case TypeMessageEnd:
		if env.Message == nil {
			return nil, decodeError(line, "message_end without message")
		}

		return &MessageEnd{Message: env.Message}, nil
	case TypeMessageUpdate:
		if env.Message == nil {
			return nil, decodeError(line, "message_update without message")
		}

		return &MessageUpdate{Message: env.Message}, nil
	case TypeToolResultEnd:
		if env.ToolName != DelegationToolName || len(env.Details) == 0 {
			return &Unknown{Type: env.Type}, nil
		}

		var details delegationDetails
		if err := json.Unmarshal(env.Details, &details); err != nil {
			return nil, &errors.EventDecodeError{RawData: string(line), Err: err}
		}

		return &DelegationResult{Mode: details.Mode, Results: details.Results}, nil
	case "":
		return nil, decodeError(line, "missing or invalid 'type' field")
	default:
		return &Unknown{Type: env.Type}, nil
	}
}

func decodeError(line []byte, reason string) error {
	return &errors.EventDecodeError{
		RawData: string(line),
		Err:     fmt.Errorf("%s", reason),
	}
}
