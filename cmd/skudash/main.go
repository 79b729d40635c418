package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"skudash/internal/catalog"
	"skudash/internal/config"
	"skudash/internal/images"
	"skudash/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "skudash",
	Short: "SKU sales dashboard",
	Long: `skudash loads a SKU sales CSV, optionally joins a drive image mapping,
and serves an interactive dashboard with totals, a top-N pie chart, a
product detail view and a CSV export.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		logger, err = logging.New(cfg.Logging, verbose)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "skudash.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadTable builds the canonical table from the configured inputs.
func loadTable() (*catalog.Table, error) {
	return catalog.Prepare(catalog.Options{
		PrimaryPath: cfg.PrimaryPath(),
		MappingPath: cfg.MappingPath(),
		Columns:     cfg.Data.Columns,
		Logger:      logger,
	})
}

func newResolver() (*images.Resolver, error) {
	opts := images.Options{
		CloudBaseURL: cfg.Images.CloudBaseURL,
		Route:        cfg.Images.Route,
		CacheSize:    cfg.Images.CacheSize,
		Logger:       logger,
	}
	if dir := cfg.ImageDir(); dir != "" {
		opts.FS = os.DirFS(dir)
	}
	return images.New(opts)
}

// imageDirExists reports whether the configured image directory is usable.
func imageDirExists() bool {
	dir := cfg.ImageDir()
	if dir == "" {
		return false
	}
	info, err := os.Stat(dir)
	return err == nil && info.IsDir()
}
