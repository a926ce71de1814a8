package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/subagent-go/internal/message"
)

func TestNewState(t *testing.T) {
	s := NewState(Descriptor{Model: "a/b", Task: "t", Context: map[string]any{"k": 1}})

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StatusRunning, s.Status)
	assert.Equal(t, -1, s.ExitCode)
	assert.False(t, s.Terminal())
	assert.NotEqual(t, s.ID, NewState(Descriptor{}).ID)
}

func TestFinish_OnlyOnce(t *testing.T) {
	s := NewState(Descriptor{})

	require.True(t, s.Finish(StatusExited, 0, ""))
	require.False(t, s.Finish(StatusSignaled, 137, "SIGKILL"))

	assert.Equal(t, StatusExited, s.Status)
	assert.Equal(t, 0, s.ExitCode)
	assert.Empty(t, s.Signal)
	assert.False(t, s.FinishedAt.IsZero())
}

func TestFinish_RejectsRunning(t *testing.T) {
	s := NewState(Descriptor{})

	assert.False(t, s.Finish(StatusRunning, 0, ""))
	assert.False(t, s.Terminal())
}

func TestFailed(t *testing.T) {
	tests := []struct {
		name       string
		exitCode   int
		stopReason message.StopReason
		want       bool
	}{
		{name: "clean exit", exitCode: 0, stopReason: message.StopReasonStop, want: false},
		{name: "no stop reason", exitCode: 0, want: false},
		{name: "nonzero exit", exitCode: 2, stopReason: message.StopReasonStop, want: true},
		{name: "error stop", exitCode: 0, stopReason: message.StopReasonError, want: true},
		{name: "aborted", exitCode: 0, stopReason: message.StopReasonAborted, want: true},
		{name: "length", exitCode: 0, stopReason: message.StopReasonLength, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState(Descriptor{})
			s.Finish(StatusExited, tt.exitCode, "")
			s.StopReason = tt.stopReason

			assert.Equal(t, tt.want, Failed(s))
			assert.Equal(t, tt.stopReason == message.StopReasonAborted, Aborted(s))
		})
	}
}

func TestOutput_LastGeneratedText(t *testing.T) {
	s := NewState(Descriptor{})
	s.Messages = append(s.Messages,
		assistant("first", nil),
		assistant("second", nil),
		&message.Message{Role: message.RoleToolResult, Content: message.Blocks{&message.TextBlock{Text: "tool"}}},
		assistant("", nil),
	)

	assert.Equal(t, "second", s.Output())
	assert.Empty(t, NewState(Descriptor{}).Output())
}
