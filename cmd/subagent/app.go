package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/wagiedev/subagent-go"
	"github.com/wagiedev/subagent-go/internal/usage"
)

// app carries what the commands share: the filesystem, the loaded
// configuration and the logger. Tests swap the filesystem and spawner.
type app struct {
	fs      afero.Fs
	spawner subagent.Spawner

	cfg *Config
	log *slog.Logger

	closeLog func() error
}

func newApp() *app {
	return &app{fs: afero.NewOsFs()}
}

// ledgerStore returns the configured ledger store, or nil when persistence
// is disabled.
func (a *app) ledgerStore() *usage.FileStore {
	if a.cfg.LedgerPath == "" {
		return nil
	}

	return usage.NewFileStore(a.fs, a.cfg.LedgerPath)
}

// orchestrator builds an orchestrator from the loaded configuration.
func (a *app) orchestrator(registerer prometheus.Registerer, extra ...subagent.Option) *subagent.Orchestrator {
	log := a.log.With("component", "orchestrator")

	opts := []subagent.Option{
		subagent.WithLogger(a.log),
		subagent.WithAgentPath(a.cfg.AgentPath),
		subagent.WithCwd(a.cfg.Cwd),
		subagent.WithModels(a.cfg.Models...),
		subagent.WithMaxConcurrency(a.cfg.MaxConcurrency),
		subagent.WithGracePeriod(a.cfg.GracePeriod),
		subagent.WithStderr(func(line string) {
			log.Debug("agent stderr", "line", line)
		}),
		subagent.WithOnUsage(func(total subagent.Usage) {
			log.Info("session usage", "usage", subagent.FormatUsage(total), "cost", total.Cost)
		}),
	}

	if a.cfg.AgentName != "" {
		opts = append(opts, subagent.WithAgentName(a.cfg.AgentName))
	}

	if store := a.ledgerStore(); store != nil {
		opts = append(opts, subagent.WithLedgerStore(store))
	}

	if registerer != nil {
		opts = append(opts, subagent.WithMetricsRegisterer(registerer))
	}

	if a.spawner != nil {
		opts = append(opts, subagent.WithSpawner(a.spawner))
	}

	return subagent.New(append(opts, extra...)...)
}

// logProgress returns a progress sink that writes coarse batch progress to
// the log.
func (a *app) logProgress() func(subagent.Progress) {
	log := a.log.With("component", "progress")
	start := time.Now()

	return func(p subagent.Progress) {
		log.Info("progress",
			"mode", p.Mode,
			"done", p.Done,
			"running", p.Running,
			"total", p.Total,
			"elapsed", time.Since(start).Round(time.Millisecond).String(),
		)
	}
}

func (a *app) close() error {
	if a.closeLog == nil {
		return nil
	}

	if err := a.closeLog(); err != nil {
		return fmt.Errorf("close log file: %w", err)
	}

	return nil
}
