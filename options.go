package subagent

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/subagent-go/internal/config"
	"github.com/wagiedev/subagent-go/internal/models"
)

// Options configures an Orchestrator.
type Options struct {
	config.Options

	// Registry lists the models tasks may run on.
	// If nil, no model is enabled and every request fails validation.
	Registry ModelRegistry

	// Progress receives coarse snapshots while a request runs. It is called
	// from a dedicated goroutine and never blocks the agents; when it falls
	// behind, superseded snapshots are dropped. Messages in a snapshot are
	// shared with the running task and must not be modified.
	Progress func(Progress)

	// ProgressBuffer is the number of pending snapshots kept for Progress.
	ProgressBuffer int

	// LedgerStore persists the session usage ledger. If nil, the ledger
	// lives in memory only.
	LedgerStore LedgerStore

	// MetricsRegisterer receives Prometheus counters for folded usage.
	// Orchestrators given the same registerer share the counters.
	MetricsRegisterer prometheus.Registerer

	// OnUsage is called with the session total after every task whose
	// usage is added to the ledger.
	OnUsage func(total Usage)
}

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = NopLogger()
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithAgentPath sets an explicit path to the agent binary.
func WithAgentPath(path string) Option {
	return func(o *Options) {
		o.AgentPath = path
	}
}

// WithAgentName sets the binary name searched for when no path is given.
// Defaults to "pi".
func WithAgentName(name string) Option {
	return func(o *Options) {
		o.AgentName = name
	}
}

// WithCwd sets the working directory for agent processes.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// WithEnv provides additional environment variables for agent processes.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithExtraArgs provides arbitrary flags to pass to the agent.
// A nil value passes the flag without a value.
func WithExtraArgs(args map[string]*string) Option {
	return func(o *Options) {
		o.ExtraArgs = args
	}
}

// WithStderr sets a callback receiving agent stderr line by line.
// It is called concurrently when tasks run in parallel.
func WithStderr(handler func(string)) Option {
	return func(o *Options) {
		o.Stderr = handler
	}
}

// WithSpawner injects a custom process spawner.
func WithSpawner(spawner Spawner) Option {
	return func(o *Options) {
		o.Spawner = spawner
	}
}

// ===== Scheduling =====

// WithMaxConcurrency sets the worker count for task lists.
// Values are clamped to [1, MaxParallelTasks]; the default is 4.
func WithMaxConcurrency(n int) Option {
	return func(o *Options) {
		o.MaxConcurrency = n
	}
}

// WithGracePeriod sets the delay between a graceful termination request
// and a forced kill when a request is cancelled. The default is 5s.
func WithGracePeriod(d time.Duration) Option {
	return func(o *Options) {
		o.GracePeriod = d
	}
}

// ===== Models =====

// WithRegistry sets the model registry.
func WithRegistry(registry ModelRegistry) Option {
	return func(o *Options) {
		o.Registry = registry
	}
}

// WithModels enables a fixed list of "provider/id" models.
func WithModels(refs ...string) Option {
	return func(o *Options) {
		o.Registry = models.Static(refs)
	}
}

// ===== Progress and usage =====

// WithProgress sets the progress sink.
func WithProgress(sink func(Progress)) Option {
	return func(o *Options) {
		o.Progress = sink
	}
}

// WithProgressBuffer sets how many snapshots may wait for the progress sink.
func WithProgressBuffer(n int) Option {
	return func(o *Options) {
		o.ProgressBuffer = n
	}
}

// WithLedgerStore persists the session usage ledger.
func WithLedgerStore(store LedgerStore) Option {
	return func(o *Options) {
		o.LedgerStore = store
	}
}

// WithMetricsRegisterer registers usage counters with r.
func WithMetricsRegisterer(r prometheus.Registerer) Option {
	return func(o *Options) {
		o.MetricsRegisterer = r
	}
}

// WithOnUsage sets a callback receiving the session total after each fold.
func WithOnUsage(fn func(total Usage)) Option {
	return func(o *Options) {
		o.OnUsage = fn
	}
}
