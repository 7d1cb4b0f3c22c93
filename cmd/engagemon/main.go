// Package main implements the engagemon CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"engagemon/internal/config"
	"engagemon/internal/logging"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "engagemon",
	Short: "Profile monitor with human-paced auto-reactions",
	Long: `engagemon watches a set of public profiles for new posts and reacts from
configured accounts with AI-generated comments, pacing every interaction
the way a person at a keyboard would.

All waits, typing and pointer movement are randomized. Creating the
configured pause file suspends all activity at the next interaction
boundary; removing it resumes.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Secrets come from the environment; a local .env is a
		// convenience for development.
		_ = godotenv.Load()

		if cmd.Name() == "init" {
			// init writes the config file, so there is nothing to load.
			cfg = config.DefaultConfig()
		} else {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}

		var err error
		logger, err = logging.New(cfg.Logging, cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "engagemon.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
