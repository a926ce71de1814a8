// Package subagent delegates tasks to agent processes and collects their
// results.
//
// Each task runs in its own child process, started in non-interactive JSON
// mode. The orchestrator decodes the process's event stream into a
// TaskState while it runs, bounds how many processes run at once, and keeps
// a session ledger of the tokens and cost every task consumed.
//
// # Basic Usage
//
//	o := subagent.New(
//	    subagent.WithModels("anthropic/claude-sonnet-4-5", "openai/gpt-5"),
//	    subagent.WithLogger(slog.Default()),
//	)
//
//	result, err := o.Run(ctx, &subagent.Request{
//	    Model: "openai/gpt-5",
//	    Task:  "Summarize the README in three bullet points",
//	})
//	if err != nil {
//	    log.Fatal(err) // the request was rejected, nothing ran
//	}
//
//	fmt.Println(result.Results[0].Output())
//
// # Parallel Tasks
//
// Up to MaxParallelTasks independent tasks run on a bounded worker pool.
// Results come back in submission order whatever order the tasks finish in:
//
//	result, err := o.Run(ctx, &subagent.Request{Tasks: []subagent.TaskRequest{
//	    {Model: "openai/gpt-5", Task: "Review auth.go"},
//	    {Model: "anthropic/claude-sonnet-4-5", Task: "Review db.go"},
//	}})
//
//	fmt.Printf("%d/%d succeeded\n", result.Succeeded(), len(result.Results))
//
// # Cancellation
//
// Cancelling the context passed to Run stops every running task. Each agent
// first receives SIGTERM and is killed after the grace period
// (WithGracePeriod). Cancelled tasks are reported with the "aborted" stop
// reason so they can be told apart from tasks that failed on their own.
//
// # Error Handling
//
// Run returns an error only when the request is rejected before anything is
// spawned:
//
//	if v, ok := errors.AsType[*subagent.ValidationError](err); ok {
//	    log.Printf("rejected: %v (available: %v)", v.Err, v.AvailableModels)
//	}
//
// Failures of the agents themselves, including a binary that cannot be
// found, are recorded on each TaskState. Use Failed or Result.IsError to
// classify them.
//
// # Tool Boundary
//
// RegisterTool exposes the orchestrator to a driving agent as the
// "subagent" MCP tool.
package subagent
