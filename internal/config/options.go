package config

import (
	"log/slog"
	"time"
)

const (
	// DefaultAgentName is the binary searched for when AgentPath is empty.
	DefaultAgentName = "pi"

	// DefaultGracePeriod is the delay between a graceful termination request
	// and a forced kill during cancellation.
	DefaultGracePeriod = 5 * time.Second

	// DefaultMaxConcurrency is the default worker count for parallel batches.
	DefaultMaxConcurrency = 4

	// MaxParallelTasks is the largest accepted batch and the worker cap.
	MaxParallelTasks = 8
)

// Options configures how agent processes are spawned.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// AgentPath is the explicit path to the agent binary.
	// If empty, AgentName is searched in PATH and common locations.
	AgentPath string

	// AgentName is the binary name searched for when AgentPath is empty.
	// Defaults to DefaultAgentName.
	AgentName string

	// Cwd sets the working directory for agent processes.
	Cwd string

	// Env provides additional environment variables for agent processes.
	Env map[string]string

	// ExtraArgs provides arbitrary flags to pass to the agent.
	// If the value is nil, the flag is passed without a value (boolean flag).
	ExtraArgs map[string]*string

	// MaxConcurrency is the worker count for parallel batches.
	// Values outside [1, MaxParallelTasks] are clamped.
	MaxConcurrency int

	// GracePeriod is the delay between SIGTERM and SIGKILL on cancellation.
	// Defaults to DefaultGracePeriod.
	GracePeriod time.Duration

	// Stderr is a callback function for handling stderr output line by line.
	Stderr func(string)

	// Spawner allows injecting a custom process spawner.
	// If nil, the default subprocess spawner is used.
	Spawner Spawner `json:"-"`
}

// Concurrency returns MaxConcurrency clamped to [1, MaxParallelTasks],
// falling back to DefaultMaxConcurrency when unset.
func (o *Options) Concurrency() int {
	switch {
	case o.MaxConcurrency <= 0:
		return DefaultMaxConcurrency
	case o.MaxConcurrency > MaxParallelTasks:
		return MaxParallelTasks
	default:
		return o.MaxConcurrency
	}
}

// Grace returns GracePeriod or the default.
func (o *Options) Grace() time.Duration {
	if o.GracePeriod <= 0 {
		return DefaultGracePeriod
	}

	return o.GracePeriod
}

// Agent returns AgentName or the default.
func (o *Options) Agent() string {
	if o.AgentName == "" {
		return DefaultAgentName
	}

	return o.AgentName
}
