// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	// Ingestion metrics
	TradesIngested  prometheus.Counter
	MarketsIngested prometheus.Counter
	IngestionErrors prometheus.Counter

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec // labeled by status
	StageDuration     *prometheus.HistogramVec
	WalletsScored     prometheus.Gauge
	WeightsComputed   prometheus.Gauge
	MarketsProcessed  prometheus.Counter
	MarketsFailed     prometheus.Counter
	SnapshotsWritten  prometheus.Counter
	TradesSkipped     prometheus.Counter

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered on
// the default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "smartcrowd"
	}

	return &Metrics{
		TradesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_ingested_total",
			Help:      "Total trades accepted by the ingestion manager.",
		}),
		MarketsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markets_ingested_total",
			Help:      "Total market records upserted by the ingestion manager.",
		}),
		IngestionErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_errors_total",
			Help:      "Total ingestion failures.",
		}),

		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total pipeline runs by terminal status.",
		}, []string{"status"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"stage"}),
		WalletsScored: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wallets_scored",
			Help:      "Wallets with global metrics after the last run.",
		}),
		WeightsComputed: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "trust_weights_computed",
			Help:      "Trust weight records written by the last run.",
		}),
		MarketsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markets_processed_total",
			Help:      "Markets successfully aggregated into snapshots.",
		}),
		MarketsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "markets_failed_total",
			Help:      "Markets whose aggregation failed and was isolated.",
		}),
		SnapshotsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_written_total",
			Help:      "Snapshot rows committed.",
		}),
		TradesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_skipped_total",
			Help:      "Malformed or out-of-order trades excluded from scoring.",
		}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_successful_run_timestamp_seconds",
			Help:      "Unix time of the last successful full recompute.",
		}),
	}
}

// Handler returns the HTTP handler exposing the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
