// Package flakewatch implements the flakewatch CLI.
package flakewatch

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kamilpajak/flakewatch/internal/config"
	"github.com/kamilpajak/flakewatch/internal/flakiness"
	"github.com/kamilpajak/flakewatch/internal/logging"
	"github.com/kamilpajak/flakewatch/internal/store"
	"github.com/kamilpajak/flakewatch/internal/tracker"
)

var (
	configPath string
	resultsDir string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "flakewatch",
	Short: "Success-rate and flakiness analytics for automated tests",
	Long: `Flakewatch ingests test-run results and tracks two signals per test
over time: how often it passes, and how inconsistently it behaves.

Feed it Playwright JSON reports with 'record', then inspect the derived
signals with 'report' and 'trends', or serve them over HTTP with 'serve'.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results-dir", "", "Directory for persisted analytics state")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(trendsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// components wires the analytics core from configuration.
type components struct {
	cfg      *config.Config
	logger   *zap.Logger
	tracker  *tracker.SuccessRateTracker
	analyzer *flakiness.Analyzer
	close    func()
}

func setup(ctx context.Context) (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if resultsDir != "" {
		cfg.ResultsDir = resultsDir
	}

	logger, err := logging.New(verbose)
	if err != nil {
		return nil, err
	}

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	tr := tracker.New(ctx, st, logger, tracker.WithCapacity(cfg.HistoryCapacity))
	an := flakiness.New(tr, st, logger, flakiness.WithThreshold(cfg.FlakyThreshold))

	return &components{
		cfg:      cfg,
		logger:   logger,
		tracker:  tr,
		analyzer: an,
		close: func() {
			closeStore()
			_ = logger.Sync()
		},
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		if err := store.Migrate(cfg.DatabaseURL); err != nil {
			return nil, nil, err
		}
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	}

	fs, err := store.NewFileStore(cfg.ResultsDir)
	if err != nil {
		return nil, nil, err
	}
	return fs, func() {}, nil
}
