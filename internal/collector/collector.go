package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jgoulah/gridmix/internal/genmix"
	"github.com/jgoulah/gridmix/internal/observability"
	"github.com/jgoulah/gridmix/pkg/models"
	"github.com/sirupsen/logrus"
)

// Fetcher returns the intervals between two calendar dates, inclusive
type Fetcher interface {
	FetchRange(ctx context.Context, start, end time.Time) ([]models.Interval, error)
}

// Checkpoint persists collected rows so an interrupted run can resume
type Checkpoint interface {
	// LoadRange returns the stored rows for the intervals a fetch of [start, end] covers,
	// i.e. interval ends after start 00:00 up to and including the midnight after end
	LoadRange(start, end time.Time) (*genmix.Table, error)
	// SaveTable stores every row of the table
	SaveTable(t *genmix.Table) error
}

// Collector runs fetch -> flatten -> build for date ranges and stitches the results
type Collector struct {
	fetcher    Fetcher
	checkpoint Checkpoint
	resume     bool
	logger     logrus.FieldLogger
}

// New creates a collector without checkpointing
func New(fetcher Fetcher, logger logrus.FieldLogger) *Collector {
	return &Collector{fetcher: fetcher, logger: logger}
}

// WithCheckpoint saves each fetched range to cp. With resume set, months that
// already have rows in cp are read from it instead of the API.
func (c *Collector) WithCheckpoint(cp Checkpoint, resume bool) *Collector {
	c.checkpoint = cp
	c.resume = resume
	return c
}

// FetchRange fetches one date range and builds its table
func (c *Collector) FetchRange(ctx context.Context, start, end time.Time) (*genmix.Table, error) {
	intervals, err := c.fetcher.FetchRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching %s to %s: %w", start.Format("2006-01-02"), end.Format("2006-01-02"), err)
	}

	for _, iv := range intervals {
		if dups := genmix.DuplicateFuels(iv.GenerationMix); len(dups) > 0 {
			c.logger.WithFields(logrus.Fields{
				"interval": iv.To.Format(time.RFC3339),
				"fuels":    dups,
			}).Warn("Duplicate fuels in interval, keeping the last value")
		}
	}

	return genmix.Build(intervals), nil
}

// FetchYear fetches every month of year in order and returns a single table.
// A failure in any month aborts the run.
func (c *Collector) FetchYear(ctx context.Context, year int) (*genmix.Table, error) {
	var monthly []*genmix.Table
	for _, r := range YearMonths(year) {
		t, err := c.collectMonth(ctx, r[0], r[1])
		if err != nil {
			return nil, err
		}
		monthly = append(monthly, t)
	}

	table := genmix.NewTable()
	for _, t := range monthly {
		table.Concat(t)
	}
	return table, nil
}

// FetchYearWithTrailingDays fetches year and then the days immediately after it
func (c *Collector) FetchYearWithTrailingDays(ctx context.Context, year, days int) (*genmix.Table, error) {
	table, err := c.FetchYear(ctx, year)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return table, nil
	}

	start := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, days-1)

	c.logger.Infof("Fetching data for %s to %s", start.Format("2006-01-02"), end.Format("2006-01-02"))
	trailing, err := c.FetchRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if err := c.save(trailing); err != nil {
		return nil, err
	}

	table.Concat(trailing)
	return table, nil
}

func (c *Collector) collectMonth(ctx context.Context, start, end time.Time) (*genmix.Table, error) {
	month := start.Format("2006-01")

	if c.checkpoint != nil && c.resume {
		stored, err := c.checkpoint.LoadRange(start, end)
		if err != nil {
			return nil, fmt.Errorf("loading checkpoint for %s: %w", month, err)
		}
		if stored.Len() > 0 {
			c.logger.Infof("Using %s checkpointed rows for %s", humanize.Comma(int64(stored.Len())), month)
			observability.MonthsCollected.WithLabelValues("checkpoint").Inc()
			return stored, nil
		}
	}

	c.logger.Infof("Fetching data for %s", month)
	t, err := c.FetchRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if err := c.save(t); err != nil {
		return nil, err
	}

	observability.MonthsCollected.WithLabelValues("api").Inc()
	c.logger.Debugf("Fetched %d intervals for %s", t.Len(), month)
	return t, nil
}

func (c *Collector) save(t *genmix.Table) error {
	if c.checkpoint == nil {
		return nil
	}
	if err := c.checkpoint.SaveTable(t); err != nil {
		return fmt.Errorf("saving checkpoint: %w", err)
	}
	return nil
}
