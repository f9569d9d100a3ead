// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Sync metrics
	SyncCyclesTotal   *prometheus.CounterVec
	SyncCycleDuration prometheus.Histogram
	WalletSyncsTotal  *prometheus.CounterVec
	SnapshotsWritten  prometheus.Counter
	EventsProcessed   *prometheus.CounterVec
	PriceLookups      *prometheus.CounterVec
	HistoryWrites     *prometheus.CounterVec

	// Provider metrics
	ProviderCallLatency *prometheus.HistogramVec
	ProviderCallErrors  *prometheus.CounterVec

	// Retention metrics
	RowsPruned  *prometheus.CounterVec
	PruneErrors *prometheus.CounterVec

	// Scheduler metrics
	JobRunsTotal   *prometheus.CounterVec
	JobRunDuration *prometheus.HistogramVec

	// Health metrics
	LastSuccessfulSync  prometheus.Gauge
	LastSuccessfulPrune prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "wallet_sync"
	}

	return &Metrics{
		SyncCyclesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cycles_total",
			Help:      "Total number of sync cycles by outcome",
		}, []string{"status"}),
		SyncCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cycle_duration_seconds",
			Help:      "Sync cycle duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		WalletSyncsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "wallets_total",
			Help:      "Total number of wallet syncs by phase and status",
		}, []string{"phase", "status"}),
		SnapshotsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "snapshots_written_total",
			Help:      "Total number of balance snapshots written",
		}),
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "events_processed_total",
			Help:      "Total number of provider transactions processed by outcome",
		}, []string{"outcome"}),
		PriceLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "lookups_total",
			Help:      "Total number of price lookups by result",
		}, []string{"result"}),
		HistoryWrites: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "history_writes_total",
			Help:      "Total number of balance history batches by status",
		}, []string{"status"}),

		ProviderCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_latency_seconds",
			Help:      "Provider API call latency in seconds, including retries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		ProviderCallErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_errors_total",
			Help:      "Total number of failed provider API calls",
		}, []string{"method"}),

		RowsPruned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "rows_pruned_total",
			Help:      "Total number of rows removed by retention pruning",
		}, []string{"table"}),
		PruneErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "errors_total",
			Help:      "Total number of failed prune operations",
		}, []string{"table"}),

		JobRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_runs_total",
			Help:      "Total number of scheduled job runs by status",
		}, []string{"job", "status"}),
		JobRunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "job_duration_seconds",
			Help:      "Scheduled job duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"job"}),

		LastSuccessfulSync: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_sync_timestamp",
			Help:      "Unix timestamp of last completed sync cycle",
		}),
		LastSuccessfulPrune: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_prune_timestamp",
			Help:      "Unix timestamp of last prune with no failed targets",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSyncCycle records a completed or skipped sync cycle.
func RecordSyncCycle(status string, durationSeconds float64) {
	DefaultMetrics.SyncCyclesTotal.WithLabelValues(status).Inc()
	if status == "skipped" {
		return
	}
	DefaultMetrics.SyncCycleDuration.Observe(durationSeconds)
	DefaultMetrics.LastSuccessfulSync.Set(float64(time.Now().Unix()))
}

// RecordWalletSync records the outcome of one phase of a wallet sync.
func RecordWalletSync(phase string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.WalletSyncsTotal.WithLabelValues(phase, status).Inc()
}

// RecordSnapshotWritten increments the snapshots written counter.
func RecordSnapshotWritten() {
	DefaultMetrics.SnapshotsWritten.Inc()
}

// RecordEvents records transaction outcomes for one wallet.
func RecordEvents(inserted, skipped, failed int) {
	DefaultMetrics.EventsProcessed.WithLabelValues("inserted").Add(float64(inserted))
	DefaultMetrics.EventsProcessed.WithLabelValues("skipped").Add(float64(skipped))
	DefaultMetrics.EventsProcessed.WithLabelValues("failed").Add(float64(failed))
}

// RecordPriceLookup records a price lookup result: resolved, cached or unavailable.
func RecordPriceLookup(result string) {
	DefaultMetrics.PriceLookups.WithLabelValues(result).Inc()
}

// RecordHistoryWrite records a balance history batch write.
func RecordHistoryWrite(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.HistoryWrites.WithLabelValues(status).Inc()
}

// RecordProviderCall records provider call latency.
func RecordProviderCall(method string, seconds float64, err error) {
	DefaultMetrics.ProviderCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordPruned records the outcome of pruning one table.
func RecordPruned(table string, rows int64, err error) {
	if err != nil {
		DefaultMetrics.PruneErrors.WithLabelValues(table).Inc()
		return
	}
	DefaultMetrics.RowsPruned.WithLabelValues(table).Add(float64(rows))
}

// RecordPruneComplete marks a prune run with no failed targets.
func RecordPruneComplete() {
	DefaultMetrics.LastSuccessfulPrune.Set(float64(time.Now().Unix()))
}

// RecordJobRun records a scheduled job run.
func RecordJobRun(job, status string, durationSeconds float64) {
	DefaultMetrics.JobRunsTotal.WithLabelValues(job, status).Inc()
	DefaultMetrics.JobRunDuration.WithLabelValues(job).Observe(durationSeconds)
}
