package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "databeamd",
		Short: "databeam - hierarchical typed pub/sub data hub",
		Long: `databeamd runs a data hub: a tree of typed Input/Output points and
Observations, wired by static routes, with optional Rego admission policy,
SQLite-backed buffer persistence, and WASM transform plugins.

Features:
  - Typed bring-up configs via CUE, with Starlark-evaluated defaults
  - Rego-based namespace admission policy, hot-reloaded from disk
  - SQLite-backed Observation buffer backup
  - WASM sandboxed custom transforms
  - Structured logging, Prometheus metrics, OpenTelemetry tracing`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "bring-up CUE file or directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newValidateCommand())

	return rootCmd
}
