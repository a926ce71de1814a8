// Command subagent delegates tasks to isolated agent processes. It serves
// the delegation tool over MCP stdio, runs task batches from the command line
// and reports the usage ledger.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var (
	// Version is the version of the binary.
	Version = "dev"

	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	code := 0
	if err := newRootCmd(newApp()).ExecuteContext(ctx); err != nil {
		code = 1
	}

	cancel()
	os.Exit(code)
}
