// Package cmd defines the CLI commands for the catalog-ingest executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog-ingest",
		Short: "Ingests product listings from a retail catalog into the product database.",
		Long: `catalog-ingest walks configured category pages in a headless browser,
extracts product listings, enriches each with an image embedding, and
persists the results with idempotent upserts keyed on the product URL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newIngestCmd())

	return cmd
}

// Execute is the main entry point. Setup failures exit non-zero.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
