// Package cmd provides the CLI commands for kestrel.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-search/kestrel/internal/config"
	"github.com/kestrel-search/kestrel/internal/engine"
	kerrors "github.com/kestrel-search/kestrel/internal/errors"
	"github.com/kestrel-search/kestrel/internal/logging"
	"github.com/kestrel-search/kestrel/pkg/version"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	dataDir    string
	logLevel   string
	logFormat  string
}

// Execute runs the CLI and prints structured errors to stderr.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprint(os.Stderr, kerrors.FormatForCLI(err))
		return err
	}
	return nil
}

// NewRootCmd creates the root command for the kestrel CLI.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "kestrel",
		Short: "Query understanding and hybrid retrieval for documentation",
		Long: `Kestrel answers documentation queries with hybrid retrieval:
BM25 keyword search and semantic vector search fused with
Reciprocal Rank Fusion, plus synonym expansion, autocomplete
suggestions, and query history analytics.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("kestrel version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Path to config file (default .kestrel.yaml in the working directory)")
	cmd.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "Directory for indexes and history (default in-memory)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", "", "Log format: json, text")

	cmd.AddCommand(newSearchCmd(flags))
	cmd.AddCommand(newSuggestCmd(flags))
	cmd.AddCommand(newIngestCmd(flags))
	cmd.AddCommand(newRemoveCmd(flags))
	cmd.AddCommand(newHistoryCmd(flags))
	cmd.AddCommand(newStatsCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig resolves the effective configuration for a command invocation.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error

	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		dir, wdErr := os.Getwd()
		if wdErr != nil {
			dir = "."
		}
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, err
	}

	if f.dataDir != "" {
		cfg.Storage.DataDir = f.dataDir
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Log.Format = f.logFormat
	}
	return cfg, nil
}

// openEngine builds an engine from flags and config. Callers must Close it.
func (f *rootFlags) openEngine() (*engine.Engine, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	return engine.Open(cfg, logger)
}
