package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/wagiedev/subagent-go"
	internalmcp "github.com/wagiedev/subagent-go/internal/mcp"
)

type serveOptions struct {
	metricsAddr string
}

func newServeCmd(a *app) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the subagent tool over MCP stdio",
		Long: `Serve exposes the subagent tool to a driving agent over the Model Context
Protocol on stdin and stdout. Logs go to stderr or --log-file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), a, &opts, &mcp.StdioTransport{})
		},
	}

	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func serve(ctx context.Context, a *app, opts *serveOptions, transport mcp.Transport) error {
	log := a.log.With("component", "serve")

	var (
		registry   *prometheus.Registry
		registerer prometheus.Registerer
	)

	if opts.metricsAddr != "" {
		registry = prometheus.NewRegistry()
		registerer = registry
	}

	o := a.orchestrator(registerer, subagent.WithProgress(a.logProgress()))

	if err := o.Restore(ctx); err != nil {
		log.Warn("Usage ledger not restored", "error", err)
	}

	server, err := newToolServer(o)
	if err != nil {
		return err
	}

	if registry != nil {
		stop, err := serveMetrics(opts.metricsAddr, registry)
		if err != nil {
			return err
		}
		defer stop()

		log.Info("Serving metrics", "addr", opts.metricsAddr)
	}

	log.Info("Serving subagent tool over MCP", "models", a.cfg.Models)

	if err := server.Run(ctx, transport); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp server: %w", err)
	}

	log.Info("MCP server stopped", "session_usage", subagent.FormatUsage(o.SessionUsage()))

	return nil
}

// newToolServer returns an MCP server exposing o as the subagent tool.
func newToolServer(o *subagent.Orchestrator) (*internalmcp.Server, error) {
	tool, err := subagent.ToolDefinition()
	if err != nil {
		return nil, fmt.Errorf("build tool definition: %w", err)
	}

	server := internalmcp.NewServer("subagent", Version)
	server.AddTool(tool, subagent.ToolHandler(o))

	return server, nil
}

func serveMetrics(addr string, registry *prometheus.Registry) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() { _ = srv.Serve(ln) }()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)
	}, nil
}
