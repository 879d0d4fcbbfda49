package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var catalogFile string

// rootCmd serves the tracker API and dashboard when run without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "microgreens",
	Short: "Microgreens cultivation tracker and dashboard",
	Long: `Tracks microgreen crops from sowing to harvest: daily logs, photos,
yield predictions and the crop dashboard.

Configuration is read from CONFIG_PATH (default configs/config.yaml) and
environment overrides.`,
	SilenceUsage: true,
	RunE:         runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Manage the seed catalog",
}

var seedsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import seed reference data from a catalog CSV",
	Long: `Upserts every row of the catalog CSV keyed by the slug of its variety
name. Existing seeds are updated in place; rows without a variety are skipped.`,
	RunE: runSeedsImport,
}

func init() {
	seedsImportCmd.Flags().StringVarP(&catalogFile, "file", "f", "", "path to the catalog CSV (required)")
	_ = seedsImportCmd.MarkFlagRequired("file")

	seedsCmd.AddCommand(seedsImportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := initializeApp()
	if err != nil {
		return fmt.Errorf("failed to wire application: %w", err)
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		return fmt.Errorf("application stopped with error: %w", err)
	}
	return nil
}

func runSeedsImport(cmd *cobra.Command, _ []string) error {
	importer, cleanup, err := initializeSeedImporter()
	if err != nil {
		return fmt.Errorf("failed to wire importer: %w", err)
	}
	defer cleanup()

	result, err := importer.ImportFile(cmd.Context(), catalogFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %d, updated %d, skipped %d\n", result.Added, result.Updated, result.Skipped)
	return nil
}
