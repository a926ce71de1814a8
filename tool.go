package subagent

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	internalmcp "github.com/wagiedev/subagent-go/internal/mcp"
)

// ToolName is the name the orchestrator is exposed under.
const ToolName = "subagent"

const toolDescription = "Delegate work to subagents running in isolated processes. " +
	"Pass model and task for one subagent, or tasks for up to 8 independent subagents run in parallel. " +
	"Models are given as provider/id and must be enabled."

// ToolInput is the argument object of the subagent tool.
type ToolInput = Request

// ToolOutput is what a tool invocation returns to the driving agent.
type ToolOutput struct {
	// Text is the rendered summary.
	Text string `json:"text"`
	// Details is the structured result. For rejected requests it carries
	// only the available models.
	Details *Result `json:"details"`
	// IsError is set when the request was rejected or any task failed.
	IsError bool `json:"isError"`
}

var toolSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	schema, err := jsonschema.For[ToolInput](nil)
	if err != nil {
		return nil, fmt.Errorf("tool input schema: %w", err)
	}

	if tasks, ok := schema.Properties["tasks"]; ok {
		maxItems := MaxParallelTasks
		tasks.MaxItems = &maxItems
	}

	return schema, nil
})

// ToolSchema returns the JSON Schema of ToolInput.
func ToolSchema() (*jsonschema.Schema, error) {
	return toolSchema()
}

// CallTool runs one tool invocation. Every failure, including a rejected
// request or an unavailable model registry, is reported in the output with
// IsError set; the returned error is always nil.
func (o *Orchestrator) CallTool(ctx context.Context, in ToolInput) (*ToolOutput, error) {
	result, err := o.Run(ctx, &in)
	if err != nil {
		details := &Result{Results: []TaskState{}}

		if validation, ok := stderrors.AsType[*ValidationError](err); ok {
			details.AvailableModels = validation.AvailableModels
		} else {
			o.log.Warn("Tool call failed", "error", err)
		}

		return &ToolOutput{Text: err.Error(), Details: details, IsError: true}, nil
	}

	return &ToolOutput{
		Text:    RenderText(result),
		Details: result,
		IsError: result.IsError(),
	}, nil
}

// ToolDefinition returns the MCP definition of the subagent tool.
func ToolDefinition() (*mcp.Tool, error) {
	schema, err := ToolSchema()
	if err != nil {
		return nil, err
	}

	return internalmcp.NewTool(ToolName, toolDescription, schema), nil
}

// ToolHandler adapts o to an MCP tool handler.
func ToolHandler(o *Orchestrator) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		in, err := internalmcp.ParseArguments[ToolInput](req)
		if err != nil {
			return internalmcp.ErrorResult(err.Error()), nil
		}

		out, err := o.CallTool(ctx, in)
		if err != nil {
			return nil, err
		}

		return internalmcp.StructuredResult(out.Text, out.Details, out.IsError), nil
	}
}

// RegisterTool adds the subagent tool, backed by o, to server.
func RegisterTool(server *mcp.Server, o *Orchestrator) error {
	tool, err := ToolDefinition()
	if err != nil {
		return err
	}

	server.AddTool(tool, ToolHandler(o))

	return nil
}
