// Package cmd provides the CLI commands for the gazetteer.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/overture-tools/gazetteer/internal/config"
	"github.com/overture-tools/gazetteer/internal/logging"
	"github.com/overture-tools/gazetteer/pkg/version"
)

// Global flags shared by all subcommands.
var (
	cfgPath  string
	logLevel string
	logJSON  bool

	// cfg is the resolved configuration, populated before any RunE.
	cfg *config.Config
)

// NewRootCmd creates the root command for the gazetteer CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gazetteer",
		Short: "Build and sync a place-name index from Overture Maps data",
		Long: `Gazetteer turns Overture Maps division and address snapshots into a
single-file full-text search index, serves forward and reverse geocoding
queries against it, and computes version-based changesets that keep
remote copies in sync without re-shipping the whole index.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setup()
		},
	}

	cmd.SetVersionTemplate("gazetteer version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().BoolVar(&logJSON, "json-logs", false, "Emit logs as JSON")

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newReverseCmd())
	cmd.AddCommand(newReleasesCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads .env, the config file, and installs the logger. It runs
// once per invocation before any subcommand.
func setup() error {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	loaded, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return err
	}
	cfg = loaded

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	logging.Setup(logging.Config{Level: level, JSON: logJSON || cfg.Log.JSON})
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
