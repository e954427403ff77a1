// Package cmd defines and implements the CLI commands for the harvester
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/recipecorpus/harvester/internal/logging"
	"github.com/recipecorpus/harvester/pkg/config"
)

var cfgFile string

// rootLogger is built after configuration loads and is shared by all
// subcommands. Tests may replace it.
var rootLogger = zap.NewNop()

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Builds a recipe text corpus by walking site identifier spaces.",
		Long: `harvester enumerates numeric identifiers against known recipe-site URL
templates, fetches each candidate page, classifies whether it is a genuine
recipe, and persists raw HTML, extracted plain text, and metadata into a
crash-resumable per-site ledger.`,

		// Configuration and the logger must exist before any subcommand runs.
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if err := config.Init(cfgFile); err != nil {
				return fmt.Errorf("initialize configuration: %w", err)
			}
			logger, err := logging.New(
				viper.GetBool("logging.development"),
				viper.GetString("logging.level"),
			)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			rootLogger = logger
			return nil
		},

		PersistentPostRun: func(*cobra.Command, []string) {
			_ = rootLogger.Sync()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ., /etc/harvester, $HOME/.harvester)")

	cmd.AddCommand(newHarvestCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "harvester: %v\n", err)
		os.Exit(1)
	}
}
