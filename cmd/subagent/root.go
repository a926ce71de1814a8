package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRootCmd(a *app) *cobra.Command {
	v := viper.New()

	var configFile string

	cmd := &cobra.Command{
		Use:           "subagent",
		Short:         "Delegate tasks to isolated agent processes",
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v, a.fs, configFile)
			if err != nil {
				return err
			}

			logger, closeLog, err := setupLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}

			a.cfg = cfg
			a.log = logger.With("version", Version)
			a.closeLog = closeLog

			checkModels(a.log, cfg.Models)

			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: subagent.yaml in ., $XDG_CONFIG_HOME/subagent, ~/.config/subagent)")
	flags.String("agent-path", "", "path to the agent binary")
	flags.StringSlice("models", nil, "enabled models as provider/id")
	flags.Int("max-concurrency", 0, "maximum concurrently running agents for a task list")
	flags.Duration("grace-period", 0, "time between SIGTERM and SIGKILL on cancellation")
	flags.String("ledger-path", "", "usage ledger file")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-file", "", "write logs to a rotating file instead of stderr")

	for key, flag := range map[string]string{
		"agent_path":      "agent-path",
		"models":          "models",
		"max_concurrency": "max-concurrency",
		"grace_period":    "grace-period",
		"ledger_path":     "ledger-path",
		"log_level":       "log-level",
		"log_file":        "log-file",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newUsageCmd(a))

	return cmd
}
