package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jgoulah/gridmix/internal/config"
	"github.com/jgoulah/gridmix/internal/database"
	"github.com/jgoulah/gridmix/internal/observability"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	dbPath   string
	logLevel string
	logger   = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "gridmix",
	Short: "Download historical GB electricity generation mix data",
	Long: `gridmix collects the half-hourly generation mix (percentage of generation per fuel type)
from the Carbon Intensity API and writes it as a wide CSV table, one column per fuel.

Run without a subcommand to fetch the configured year (default 2022) plus one trailing day
into data/generation_data.csv.`,
	PersistentPreRunE: setupLogging,
	RunE:              runFetch,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "checkpoint database file (default from config, disabled if empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logger.WithError(err).Warn("Invalid log level, defaulting to info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return nil
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path, with --db taking precedence over config
func getDBPath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.Database
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// saveConfig saves the configuration file
func saveConfig(cfg *config.Config) error {
	return config.Save(getConfigPath(), cfg)
}

// openDB opens the database connection
func openDB(path string) (*database.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("no database configured (set 'database' in config or pass --db)")
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// writeMetrics writes the metrics textfile when one is configured
func writeMetrics(cfg *config.Config) {
	if cfg.MetricsTextfile == "" {
		return
	}
	if err := observability.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.WithError(err).Warn("Could not write metrics")
	}
}

// parseDate parses a date string in either YYYY-MM-DD format or relative format (e.g., "7d")
func parseDate(dateStr string) (time.Time, error) {
	// Try absolute date format first
	t, err := time.Parse("2006-01-02", dateStr)
	if err == nil {
		return t, nil
	}

	// Try relative format (e.g., "7d" for 7 days ago)
	if len(dateStr) > 1 && dateStr[len(dateStr)-1] == 'd' {
		daysStr := dateStr[:len(dateStr)-1]
		var days int
		if _, err := fmt.Sscanf(daysStr, "%d", &days); err == nil {
			return time.Now().UTC().AddDate(0, 0, -days), nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid date format: %s (use YYYY-MM-DD or Nd for N days ago)", dateStr)
}

// dateFilter parses optional --since/--until values into inclusive bounds
func dateFilter(since, until string) (*time.Time, *time.Time, error) {
	var sinceDate, untilDate *time.Time
	if since != "" {
		d, err := parseDate(since)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing --since date: %w", err)
		}
		sinceDate = &d
	}
	if until != "" {
		d, err := parseDate(until)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing --until date: %w", err)
		}
		// Until is a whole calendar day
		end := d.AddDate(0, 0, 1)
		untilDate = &end
	}
	return sinceDate, untilDate, nil
}

func inRange(t time.Time, since, until *time.Time) bool {
	if since != nil && t.Before(*since) {
		return false
	}
	if until != nil && !t.Before(*until) {
		return false
	}
	return true
}
