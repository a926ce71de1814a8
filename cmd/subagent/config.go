package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/wagiedev/subagent-go/internal/config"
	"github.com/wagiedev/subagent-go/internal/models"
)

// Config is the CLI configuration, read from subagent.yaml and SUBAGENT_*
// environment variables.
type Config struct {
	AgentPath      string        `mapstructure:"agent_path"`
	AgentName      string        `mapstructure:"agent_name"`
	Cwd            string        `mapstructure:"cwd"`
	Models         []string      `mapstructure:"models"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	GracePeriod    time.Duration `mapstructure:"grace_period"`
	LedgerPath     string        `mapstructure:"ledger_path"`
	LogLevel       string        `mapstructure:"log_level"`
	LogFile        string        `mapstructure:"log_file"`
}

// configDirs lists the directories searched for subagent.yaml, in order.
func configDirs() []string {
	dirs := []string{"."}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "subagent"))
	}

	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", "subagent"))
	}

	return dirs
}

// defaultLedgerPath is where the usage ledger lives unless configured.
func defaultLedgerPath() string {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "subagent", "usage.jsonl")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".local", "state", "subagent", "usage.jsonl")
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default so AutomaticEnv picks it up on Unmarshal.
	v.SetDefault("agent_path", "")
	v.SetDefault("cwd", "")
	v.SetDefault("models", []string{})
	v.SetDefault("log_file", "")
	v.SetDefault("agent_name", config.DefaultAgentName)
	v.SetDefault("max_concurrency", config.DefaultMaxConcurrency)
	v.SetDefault("grace_period", config.DefaultGracePeriod)
	v.SetDefault("ledger_path", defaultLedgerPath())
	v.SetDefault("log_level", "info")
}

// loadConfig reads configuration into a Config. An explicit file must exist;
// otherwise a missing subagent.yaml is not an error.
func loadConfig(v *viper.Viper, fs afero.Fs, explicit string) (*Config, error) {
	v.SetFs(fs)
	setDefaults(v)

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName("subagent")
		v.SetConfigType("yaml")

		for _, dir := range configDirs() {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("SUBAGENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// SUBAGENT_MODELS is a comma separated list.
	cfg.Models = splitList(strings.Join(cfg.Models, ","))

	if cfg.MaxConcurrency < 1 {
		return nil, fmt.Errorf("config: max_concurrency must be positive, got %d", cfg.MaxConcurrency)
	}

	if cfg.GracePeriod <= 0 {
		return nil, fmt.Errorf("config: grace_period must be positive, got %s", cfg.GracePeriod)
	}

	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// checkModels logs enabled models that are not written as provider/id.
// They are kept since the registry matches them verbatim.
func checkModels(log *slog.Logger, refs []string) {
	for _, ref := range refs {
		if _, _, ok := models.Split(ref); !ok {
			log.Warn("Model is not in provider/id form", "model", ref)
		}
	}
}

func splitList(s string) []string {
	var out []string

	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}
