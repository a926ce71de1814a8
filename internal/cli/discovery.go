package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/wagiedev/subagent-go/internal/errors"
)

// Config holds configuration for agent discovery.
type Config struct {
	// AgentPath is an explicit path that skips PATH search.
	// If empty, discovery will search PATH and common locations.
	AgentPath string

	// AgentName is the binary name to search for.
	AgentName string

	// Logger is an optional logger for discovery operations.
	// If nil, a discard logger is used.
	Logger *slog.Logger
}

// Discoverer locates the agent binary.
type Discoverer interface {
	// Discover returns the absolute path to the agent binary or an error.
	Discover(ctx context.Context) (string, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new agent discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &discoverer{
		cfg: cfg,
		log: log,
	}
}

// Discover locates the agent binary.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// If explicit path provided, use it and only it
	if d.cfg.AgentPath != "" {
		d.log.Debug("Using explicit agent path", "agent_path", d.cfg.AgentPath)

		if _, err := os.Stat(d.cfg.AgentPath); err == nil {
			return d.cfg.AgentPath, nil
		}

		return "", &errors.AgentNotFoundError{
			Name:          d.cfg.AgentPath,
			SearchedPaths: []string{d.cfg.AgentPath},
		}
	}

	name := d.cfg.AgentName
	searchedPaths := make([]string, 0, 4)

	if path, err := exec.LookPath(name); err == nil {
		d.log.Debug("Found agent in PATH", "path", path)

		return path, nil
	}

	searchedPaths = append(searchedPaths, "$PATH")

	commonPaths := []string{
		filepath.Join("/usr/local/bin", name),
		filepath.Join("/usr/bin", name),
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		commonPaths = append(commonPaths, filepath.Join(homeDir, ".local/bin", name))
	}

	for _, path := range commonPaths {
		searchedPaths = append(searchedPaths, path)

		if _, err := os.Stat(path); err == nil {
			d.log.Debug("Found agent at common path", "path", path)

			return path, nil
		}
	}

	d.log.Warn("Agent binary not found in any searched paths", "name", name, "searched_paths", searchedPaths)

	return "", &errors.AgentNotFoundError{Name: name, SearchedPaths: searchedPaths}
}
