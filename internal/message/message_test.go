package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage_Unmarshal(t *testing.T) {
	raw := `{
		"role": "assistant",
		"content": [
			{"type": "thinking", "thinking": "hmm"},
			{"type": "text", "text": "hi"},
			{"type": "toolCall", "id": "c1", "name": "read", "arguments": {"path": "a.go"}},
			{"type": "image", "text": ""}
		],
		"model": "gpt-x",
		"usage": {"input": 5, "output": 1, "cacheRead": 2, "cacheWrite": 3, "cost": {"total": 0.5}},
		"stopReason": "stop"
	}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	require.Len(t, msg.Content, 4)
	assert.IsType(t, &ThinkingBlock{}, msg.Content[0])
	assert.IsType(t, &TextBlock{}, msg.Content[1])
	assert.IsType(t, &ToolCallBlock{}, msg.Content[2])
	assert.IsType(t, &TextBlock{}, msg.Content[3])
	assert.Equal(t, "hi", msg.Text())
	assert.True(t, msg.IsGenerated())
	assert.Equal(t, StopReasonStop, msg.StopReason)

	require.NotNil(t, msg.Usage)
	assert.Equal(t, int64(5), msg.Usage.Input)
	assert.InDelta(t, 0.5, msg.Usage.Cost.Total, 1e-9)
}

func TestMessage_UnmarshalStringContent(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"do it"}`), &msg))

	assert.Equal(t, "do it", msg.Text())
	assert.False(t, msg.IsGenerated())
}

func TestMessage_Clone(t *testing.T) {
	msg := &Message{
		Role: RoleAssistant,
		Content: Blocks{
			&TextBlock{Type: BlockTypeText, Text: "a"},
			&ToolCallBlock{Type: BlockTypeToolCall, Name: "x", Arguments: map[string]any{"k": "v"}},
		},
		Usage: &TokenUsage{Input: 1},
	}

	clone := msg.Clone()
	clone.Content[0].(*TextBlock).Text = "b"
	clone.Content[1].(*ToolCallBlock).Arguments["k"] = "w"
	clone.Usage.Input = 9

	assert.Equal(t, "a", msg.Text())
	assert.Equal(t, "v", msg.Content[1].(*ToolCallBlock).Arguments["k"])
	assert.Equal(t, int64(1), msg.Usage.Input)
	assert.Nil(t, (*Message)(nil).Clone())
}

func TestUsage_Add(t *testing.T) {
	var u Usage

	u.Add(Usage{Input: 5, Output: 1, Cost: 0.25, Turns: 1})
	u.Add(Usage{Input: -3, Output: 2, CacheRead: 4, Cost: -1})

	assert.Equal(t, Usage{Input: 5, Output: 3, CacheRead: 4, Cost: 0.25, Turns: 1}, u)
	assert.False(t, u.IsZero())
	assert.True(t, Usage{}.IsZero())
}

func TestUsage_AddTokens(t *testing.T) {
	var u Usage

	u.AddTokens(TokenUsage{Input: 10, Output: 2, CacheWrite: 7, Cost: Cost{Total: 0.1}})

	assert.Equal(t, Usage{Input: 10, Output: 2, CacheWrite: 7, Cost: 0.1}, u)
}
