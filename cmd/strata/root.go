package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chazu/strata/pkg/config"
)

// Global flag values.
var (
	flagConfigDir string
	flagVerbose   bool
	flagJSON      bool
)

// Set by PersistentPreRunE for every subcommand.
var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "strata",
	Short:         "Strata evaluates parametric part scripts into solid models",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(resolveConfigDir())
		if err != nil {
			return err
		}
		logger = cfg.Log.NewLogger(cmd.ErrOrStderr(), flagVerbose)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $STRATA_CONFIG_DIR or ./.strata)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log at debug level")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(evalCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reorderCmd)
	rootCmd.AddCommand(deleteCmd)
}

// resolveConfigDir applies the precedence --config-dir flag >
// STRATA_CONFIG_DIR env > ./.strata.
func resolveConfigDir() string {
	if flagConfigDir != "" {
		return flagConfigDir
	}
	if dir := os.Getenv("STRATA_CONFIG_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(".", ".strata")
}
