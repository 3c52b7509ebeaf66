package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics must be global for registration
var (
	// RequestsTotal counts generation API requests by outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridmix_api_requests_total",
			Help: "Total number of generation API requests",
		},
		[]string{"status"}, // status: HTTP code, or "error" for transport failures
	)

	// RequestDuration measures generation API request latency
	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridmix_api_request_duration_seconds",
			Help:    "Generation API request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
		},
	)

	// IntervalsFetched counts intervals decoded from the API
	IntervalsFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gridmix_intervals_fetched_total",
			Help: "Total number of generation intervals fetched",
		},
	)

	// MonthsCollected counts months by where their rows came from
	MonthsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridmix_months_collected_total",
			Help: "Months collected, by source",
		},
		[]string{"source"}, // source: api, checkpoint
	)

	// TableRows is the number of rows in the last written table
	TableRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmix_table_rows",
			Help: "Rows in the last written generation table",
		},
	)

	// LastSuccess is the unix time of the last successful run
	LastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gridmix_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful run",
		},
	)
)

// WriteTextfile writes the default registry in text format to path, for the
// node_exporter textfile collector
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
