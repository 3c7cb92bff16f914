// Package cmd defines and implements the CLI commands for the jobscout
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seekwell/jobscout/internal/config"
	"github.com/seekwell/jobscout/internal/logging"
)

var (
	cfgFile     string
	profileFile string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobscout",
		Short: "Job posting ingestion, dedup, scoring and tracking",
		Long: `jobscout fetches job postings from multiple boards and APIs,
normalizes and deduplicates them across sources, scores each posting
against your candidate profile, and tracks which postings you have
already seen in prior runs.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default env/flags only)")
	cmd.PersistentFlags().StringVar(&profileFile, "profile", "profile.json", "candidate profile file")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newUsageCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger shared by subcommands.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}
