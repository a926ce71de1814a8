package main

import (
	"context"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func TestServe_CallsToolOverTransport(t *testing.T) {
	spawner := &fakeSpawner{replies: map[string]agentReply{
		"hello": {text: "served", input: 3, output: 1},
	}}
	a := testApp(t, spawner)

	// Load configuration and logging as the root command would.
	_, err := execute(t, a, "usage")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	done := make(chan error, 1)
	go func() { done <- serve(ctx, a, &serveOptions{}, serverTransport) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "subagent",
		Arguments: map[string]any{"model": "a/x", "task": "hello"},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.Equal(t, "served", text.Text)

	require.NoError(t, session.Close())
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestNewToolServer_ListsTool(t *testing.T) {
	a := testApp(t, &fakeSpawner{})

	_, err := execute(t, a, "usage")
	require.NoError(t, err)

	server, err := newToolServer(a.orchestrator(nil))
	require.NoError(t, err)

	tools := server.Tools()
	require.Len(t, tools, 1)
	require.Equal(t, "subagent", tools[0].Name)
}
