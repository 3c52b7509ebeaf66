package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/gridmix/internal/carbon"
	"github.com/jgoulah/gridmix/internal/collector"
	"github.com/jgoulah/gridmix/internal/config"
	"github.com/jgoulah/gridmix/internal/export"
	"github.com/jgoulah/gridmix/internal/observability"
	"github.com/jgoulah/gridmix/internal/retry"
	"github.com/spf13/cobra"
)

var (
	fetchYear         int
	fetchTrailingDays int
	fetchOutput       string
	fetchXLSX         string
	fetchResume       bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch a year of generation mix data and write it as CSV",
	Long: `Fetches the generation mix month by month for a calendar year, then the trailing
days immediately after it, and writes one wide CSV table with a Date column followed
by one column per fuel type.

With a database configured every month is checkpointed as it completes; --resume
reads months already in the database instead of fetching them again.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().IntVar(&fetchYear, "year", 0, "Calendar year to fetch (default from config: 2022)")
	fetchCmd.Flags().IntVar(&fetchTrailingDays, "trailing-days", 0, "Days after the year to include (default from config: 1)")
	fetchCmd.Flags().StringVar(&fetchOutput, "output", "", "CSV output path (default from config: data/generation_data.csv)")
	fetchCmd.Flags().StringVar(&fetchXLSX, "xlsx", "", "Also write an Excel workbook to this path")
	fetchCmd.Flags().BoolVar(&fetchResume, "resume", false, "Reuse months already stored in the database")
	rootCmd.AddCommand(fetchCmd)
}

// applyFetchFlags overrides config values with flags the user set
func applyFetchFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("year") {
		cfg.Year = fetchYear
	}
	if flags.Changed("trailing-days") {
		cfg.TrailingDays = fetchTrailingDays
	}
	if flags.Changed("output") {
		cfg.Output = fetchOutput
	}
	if flags.Changed("xlsx") {
		cfg.XLSXOutput = fetchXLSX
	}
}

// newCarbonClient builds an API client from config
func newCarbonClient(cfg *config.Config) *carbon.Client {
	opts := []carbon.Option{
		carbon.WithTimeout(cfg.API.Timeout),
		carbon.WithRateLimit(cfg.API.RequestsPerSecond),
	}
	if cfg.API.Retry.MaxAttempts > 1 {
		opts = append(opts, carbon.WithRetry(retry.Config{
			MaxAttempts: cfg.API.Retry.MaxAttempts,
			BaseDelay:   cfg.API.Retry.BaseDelay,
			MaxDelay:    cfg.API.Retry.MaxDelay,
			Multiplier:  cfg.API.Retry.Multiplier,
		}))
	}
	return carbon.NewClient(cfg.API.BaseURL, logger, opts...)
}

func runFetch(cmd *cobra.Command, args []string) error {
	started := time.Now()
	logger.Infof("=== Fetch started at %s ===", started.Format("2006-01-02 15:04:05 MST"))

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFetchFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	coll := collector.New(newCarbonClient(cfg), logger)

	// Open checkpoint database if configured
	if path := getDBPath(cfg); path != "" {
		db, err := openDB(path)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		coll.WithCheckpoint(db, fetchResume)
		logger.WithField("database", path).Info("Checkpointing months to database")
	} else if fetchResume {
		return fmt.Errorf("--resume needs a database (set 'database' in config or pass --db)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("Fetching generation mix for %d plus %d trailing day(s)", cfg.Year, cfg.TrailingDays)
	table, err := coll.FetchYearWithTrailingDays(ctx, cfg.Year, cfg.TrailingDays)
	if err != nil {
		return err
	}

	if !table.Chronological() {
		logger.Warn("Rows are not in strictly increasing time order")
	}

	n, err := export.WriteCSVFile(cfg.Output, table)
	if err != nil {
		return fmt.Errorf("writing CSV: %w", err)
	}
	logger.Infof("✓ Wrote %s rows, %d fuels (%s) to %s",
		humanize.Comma(int64(table.Len())), len(table.Fuels()), humanize.Bytes(uint64(n)), cfg.Output)

	if cfg.XLSXOutput != "" {
		if err := export.WriteXLSXFile(cfg.XLSXOutput, table); err != nil {
			return fmt.Errorf("writing XLSX: %w", err)
		}
		logger.Infof("✓ Wrote workbook to %s", cfg.XLSXOutput)
	}

	observability.TableRows.Set(float64(table.Len()))
	observability.LastSuccess.SetToCurrentTime()
	writeMetrics(cfg)

	logger.Infof("Fetch finished in %s", time.Since(started).Round(time.Millisecond))
	return nil
}
