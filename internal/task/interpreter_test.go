package task

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/subagent-go/internal/event"
	"github.com/wagiedev/subagent-go/internal/message"
)

func assistant(text string, usage *message.TokenUsage) *message.Message {
	return &message.Message{
		Role:    message.RoleAssistant,
		Content: message.Blocks{&message.TextBlock{Type: message.BlockTypeText, Text: text}},
		Usage:   usage,
	}
}

func newTestInterpreter(notify NotifyFunc) *Interpreter {
	state := NewState(Descriptor{Model: "openai/gpt-x", Task: "say hi"})

	return NewInterpreter(slog.Default(), state, notify)
}

func TestApply_MessageEnd(t *testing.T) {
	interp := newTestInterpreter(nil)

	msg := assistant("hi", &message.TokenUsage{Input: 5, Output: 1})
	msg.StopReason = message.StopReasonStop

	require.True(t, interp.Apply(&event.MessageEnd{Message: msg}))

	s := interp.State()
	require.Len(t, s.Messages, 1)
	assert.Equal(t, "hi", s.Output())
	assert.Equal(t, message.Usage{Input: 5, Output: 1, Turns: 1}, s.Usage)
	assert.Equal(t, message.StopReasonStop, s.StopReason)
}

func TestApply_NonGeneratedMessageDoesNotCountTurn(t *testing.T) {
	interp := newTestInterpreter(nil)

	interp.Apply(&event.MessageEnd{Message: &message.Message{Role: message.RoleToolResult}})

	s := interp.State()
	assert.Len(t, s.Messages, 1)
	assert.Equal(t, 0, s.Usage.Turns)
}

func TestApply_PartialReplacedWholesaleAndCleared(t *testing.T) {
	interp := newTestInterpreter(nil)

	first := assistant("hel", nil)
	second := assistant("hello", nil)

	interp.Apply(&event.MessageUpdate{Message: first})
	require.Same(t, first, interp.State().Partial)

	interp.Apply(&event.MessageUpdate{Message: second})
	require.Same(t, second, interp.State().Partial)
	assert.Equal(t, "hello", interp.State().Partial.Text())

	interp.Apply(&event.MessageEnd{Message: assistant("hello world", nil)})
	assert.Nil(t, interp.State().Partial)
}

func TestApply_ErrorStopReason(t *testing.T) {
	interp := newTestInterpreter(nil)

	msg := assistant("", nil)
	msg.StopReason = message.StopReasonError
	msg.ErrorMessage = "rate limited"

	interp.Apply(&event.MessageEnd{Message: msg})

	s := interp.State()
	assert.Equal(t, "rate limited", s.ErrorMessage)
	s.Finish(StatusExited, 0, "")
	assert.True(t, Failed(s))
}

func TestApply_NestedDelegation(t *testing.T) {
	interp := newTestInterpreter(nil)

	interp.Apply(&event.MessageEnd{Message: assistant("", &message.TokenUsage{Input: 10, Output: 2})})
	interp.Apply(&event.DelegationResult{
		Mode: "parallel",
		Results: []event.DelegatedTask{
			{Usage: message.Usage{Input: 3, Output: 1, Cost: 0.2, Turns: 4}},
			{Usage: message.Usage{Input: 1, CacheRead: 5, Turns: 1}},
		},
	})

	s := interp.State()
	assert.Len(t, s.Messages, 1, "nested results must not add messages")
	assert.Equal(t, message.Usage{Input: 14, Output: 3, CacheRead: 5, Cost: 0.2, Turns: 1}, s.Usage)
}

func TestApply_UnknownIgnored(t *testing.T) {
	var notified int

	interp := newTestInterpreter(func(State) { notified++ })

	assert.False(t, interp.Apply(&event.Unknown{Type: "agent_start"}))
	assert.Equal(t, 0, notified)
	assert.Empty(t, interp.State().Messages)
}

func TestApply_NotifiesSnapshots(t *testing.T) {
	var snapshots []State

	interp := newTestInterpreter(func(s State) { snapshots = append(snapshots, s) })

	interp.Apply(&event.MessageUpdate{Message: assistant("h", nil)})
	interp.Apply(&event.MessageEnd{Message: assistant("hi", &message.TokenUsage{Input: 1})})

	require.Len(t, snapshots, 2)
	assert.Equal(t, "h", snapshots[0].Partial.Text())
	assert.Empty(t, snapshots[0].Messages)
	assert.Nil(t, snapshots[1].Partial)
	assert.Len(t, snapshots[1].Messages, 1)

	assert.Equal(t, "hi", snapshots[1].Output())
}

func TestApply_SnapshotsShareCompletedMessages(t *testing.T) {
	var snapshots []State

	interp := newTestInterpreter(func(s State) { snapshots = append(snapshots, s) })

	first := assistant("one", nil)
	interp.Apply(&event.MessageEnd{Message: first})

	for _, text := range []string{"t", "tw", "two"} {
		interp.Apply(&event.MessageUpdate{Message: assistant(text, nil)})
	}

	interp.Apply(&event.MessageEnd{Message: assistant("two", nil)})

	require.Len(t, snapshots, 5)

	// Every snapshot points at the same completed message instead of a copy.
	for _, s := range snapshots {
		require.NotEmpty(t, s.Messages)
		assert.Same(t, first, s.Messages[0])
	}

	// Earlier snapshots do not see later appends.
	assert.Len(t, snapshots[0].Messages, 1)
	assert.Len(t, snapshots[3].Messages, 1)
	assert.Equal(t, "tw", snapshots[2].Partial.Text())
	assert.Len(t, snapshots[4].Messages, 2)
	assert.Equal(t, "two", snapshots[4].Output())
}

func TestSnapshot_AppendDoesNotLeak(t *testing.T) {
	state := NewState(Descriptor{Model: "openai/gpt-x", Task: "say hi"})
	state.Messages = append(state.Messages, assistant("a", nil))

	snap := state.Snapshot()
	state.Messages = append(state.Messages, assistant("b", nil))

	// A write through the snapshot must not land in the live backing array.
	snap.Messages = append(snap.Messages, assistant("c", nil))

	assert.Equal(t, "b", state.Messages[1].Text())
	assert.Len(t, snap.Messages, 2)
}

func TestClone_IsDetached(t *testing.T) {
	state := NewState(Descriptor{Model: "openai/gpt-x", Task: "say hi"})
	state.Messages = append(state.Messages, assistant("hi", nil))

	clone := state.Clone()
	clone.Messages[0].Content[0].(*message.TextBlock).Text = "changed"

	assert.Equal(t, "hi", state.Output())
}

func TestApply_UsageMonotonic(t *testing.T) {
	interp := newTestInterpreter(nil)

	events := []event.Event{
		&event.MessageEnd{Message: assistant("", &message.TokenUsage{Input: 4, Output: 2, Cost: message.Cost{Total: 0.1}})},
		&event.MessageUpdate{Message: assistant("x", nil)},
		&event.MessageEnd{Message: assistant("", &message.TokenUsage{Input: -10, Output: 3})},
		&event.DelegationResult{Results: []event.DelegatedTask{{Usage: message.Usage{Input: -5, Cost: -2}}}},
		&event.MessageEnd{Message: &message.Message{Role: message.RoleUser}},
	}

	prev := interp.State().Usage

	for _, ev := range events {
		interp.Apply(ev)

		cur := interp.State().Usage
		assert.GreaterOrEqual(t, cur.Input, prev.Input)
		assert.GreaterOrEqual(t, cur.Output, prev.Output)
		assert.GreaterOrEqual(t, cur.CacheRead, prev.CacheRead)
		assert.GreaterOrEqual(t, cur.CacheWrite, prev.CacheWrite)
		assert.GreaterOrEqual(t, cur.Cost, prev.Cost)
		assert.GreaterOrEqual(t, cur.Turns, prev.Turns)

		prev = cur
	}
}
