package message

import (
	"maps"
	"strings"
)

// Role identifies who produced a message.
type Role string

const (
	// RoleUser is a prompt sent to the agent.
	RoleUser Role = "user"
	// RoleAssistant is model-generated output.
	RoleAssistant Role = "assistant"
	// RoleToolResult carries the result of a tool invocation.
	RoleToolResult Role = "toolResult"
)

// StopReason records why the agent stopped generating.
type StopReason string

const (
	StopReasonStop    StopReason = "stop"
	StopReasonLength  StopReason = "length"
	StopReasonToolUse StopReason = "toolUse"
	StopReasonError   StopReason = "error"
	StopReasonAborted StopReason = "aborted"
)

// Message is one complete or partial message emitted by the agent.
type Message struct {
	Role         Role        `json:"role"`
	Content      Blocks      `json:"content,omitempty"`
	Model        string      `json:"model,omitempty"`
	Usage        *TokenUsage `json:"usage,omitempty"`
	StopReason   StopReason  `json:"stopReason,omitempty"`
	ErrorMessage string      `json:"errorMessage,omitempty"`
	ToolName     string      `json:"toolName,omitempty"`
	IsError      bool        `json:"isError,omitempty"`
}

// IsGenerated reports whether the message is model output.
func (m *Message) IsGenerated() bool {
	return m.Role == RoleAssistant
}

// Text concatenates the text blocks of the message.
func (m *Message) Text() string {
	var parts []string

	for _, block := range m.Content {
		if text, ok := block.(*TextBlock); ok && text.Text != "" {
			parts = append(parts, text.Text)
		}
	}

	return strings.Join(parts, "\n")
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}

	out := *m

	if m.Usage != nil {
		usage := *m.Usage
		out.Usage = &usage
	}

	if m.Content != nil {
		out.Content = make(Blocks, len(m.Content))

		for i, block := range m.Content {
			out.Content[i] = cloneBlock(block)
		}
	}

	return &out
}

func cloneBlock(block ContentBlock) ContentBlock {
	switch b := block.(type) {
	case *TextBlock:
		c := *b

		return &c
	case *ThinkingBlock:
		c := *b

		return &c
	case *ToolCallBlock:
		c := *b
		c.Arguments = maps.Clone(b.Arguments)

		return &c
	default:
		return block
	}
}

// TokenUsage is the per-message usage report in the agent's wire format.
type TokenUsage struct {
	Input      int64 `json:"input"`
	Output     int64 `json:"output"`
	CacheRead  int64 `json:"cacheRead"`
	CacheWrite int64 `json:"cacheWrite"`
	Cost       Cost  `json:"cost"`
}

// Cost is the per-message cost breakdown in the agent's wire format.
type Cost struct {
	Input      float64 `json:"input,omitempty"`
	Output     float64 `json:"output,omitempty"`
	CacheRead  float64 `json:"cacheRead,omitempty"`
	CacheWrite float64 `json:"cacheWrite,omitempty"`
	Total      float64 `json:"total"`
}

// Usage holds the accumulated resource counters of one or more tasks.
type Usage struct {
	Input      int64   `json:"input"`
	Output     int64   `json:"output"`
	CacheRead  int64   `json:"cacheRead"`
	CacheWrite int64   `json:"cacheWrite"`
	Cost       float64 `json:"cost"`
	Turns      int     `json:"turns"`
}

// Add adds other to u component-wise. Negative components are ignored so
// counters never decrease.
func (u *Usage) Add(other Usage) {
	u.Input += max(other.Input, 0)
	u.Output += max(other.Output, 0)
	u.CacheRead += max(other.CacheRead, 0)
	u.CacheWrite += max(other.CacheWrite, 0)
	u.Cost += max(other.Cost, 0)
	u.Turns += max(other.Turns, 0)
}

// AddTokens adds a wire usage report to u. Turns are left untouched.
func (u *Usage) AddTokens(t TokenUsage) {
	u.Add(Usage{
		Input:      t.Input,
		Output:     t.Output,
		CacheRead:  t.CacheRead,
		CacheWrite: t.CacheWrite,
		Cost:       t.Cost.Total,
	})
}

// IsZero reports whether no resources were recorded.
func (u Usage) IsZero() bool {
	return u == Usage{}
}
