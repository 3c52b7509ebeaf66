package main

import (
	"fmt"
	"time"

	"github.com/jgoulah/gridmix/internal/genmix"
	"github.com/jgoulah/gridmix/internal/publisher"
	"github.com/spf13/cobra"
)

var (
	publishSince string
	publishUntil string
	publishAll   bool
	publishLimit int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish generation mix data to MQTT",
	Long:  `Reads stored generation mix intervals from the database and publishes them to the configured MQTT broker.`,
	Args:  cobra.NoArgs,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishSince, "since", "", "Only publish data since this date (YYYY-MM-DD or relative like 7d)")
	publishCmd.Flags().StringVar(&publishUntil, "until", "", "Only publish data until this date (YYYY-MM-DD)")
	publishCmd.Flags().BoolVar(&publishAll, "all", false, "Force republish all records (ignore published flag)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of intervals to publish (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	logger.Infof("=== Publish started at %s ===", time.Now().Format("2006-01-02 15:04:05 MST"))

	// Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Check if MQTT is configured
	if !cfg.MQTT.Enabled {
		return fmt.Errorf("MQTT is not enabled in config")
	}

	since, until, err := dateFilter(publishSince, publishUntil)
	if err != nil {
		return err
	}

	// Open database
	db, err := openDB(getDBPath(cfg))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	var stored *genmix.Table
	if publishAll {
		stored, err = db.LoadAll()
	} else {
		stored, err = db.ListUnpublished()
	}
	if err != nil {
		return fmt.Errorf("listing data: %w", err)
	}

	var rows []genmix.Row
	for _, row := range stored.Rows() {
		if inRange(row.Date, since, until) {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		logger.Info("No data to publish")
		return nil
	}

	// Apply limit if specified
	if publishLimit > 0 && len(rows) > publishLimit {
		rows = rows[:publishLimit]
		logger.Infof("Limiting to %d intervals (--limit flag)", publishLimit)
	}

	// Create publisher
	pub, err := publisher.New(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	logger.Infof("Publishing %d intervals...", len(rows))
	published := 0
	for i, row := range rows {
		entry := logger.WithField("interval", row.Date.UTC().Format(time.RFC3339))
		if err := pub.Publish(row); err != nil {
			entry.WithError(err).Errorf("[%d/%d] Publish failed", i+1, len(rows))
			continue
		}

		// Mark interval as published in database
		if err := db.MarkPublished(row.Date); err != nil {
			entry.WithError(err).Warn("Published but failed to mark as published")
		}
		published++
	}

	logger.Infof("Successfully published %d/%d intervals", published, len(rows))
	return nil
}
