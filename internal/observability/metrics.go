// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Mirror metrics
	ScansTotal          *prometheus.CounterVec
	ScanDuration        prometheus.Histogram
	RecordsScanned      prometheus.Gauge
	AccountUpdatesTotal prometheus.Counter
	SnapshotsUpserted   prometheus.Counter
	SnapshotsDeleted    prometheus.Counter
	TransitionsRecorded *prometheus.CounterVec
	DecodeErrors        prometheus.Counter
	HighestSlotSeen     prometheus.Gauge

	// Latency metrics
	RPCCallLatency   *prometheus.HistogramVec
	WSMessageLatency prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulScan prometheus.Gauge
	WSReconnects       prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "listing_registry"
	}

	return &Metrics{
		// Mirror metrics
		ScansTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "scans_total",
			Help:      "Total number of program account scans by status",
		}, []string{"status"}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "scan_duration_seconds",
			Help:      "Program account scan duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RecordsScanned: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "records_scanned",
			Help:      "Number of listing records seen in the last scan",
		}),
		AccountUpdatesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "account_updates_total",
			Help:      "Total number of account updates received over WebSocket",
		}),
		SnapshotsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "snapshots_upserted_total",
			Help:      "Total number of listing snapshots written to storage",
		}),
		SnapshotsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "snapshots_deleted_total",
			Help:      "Total number of closed listing snapshots removed from storage",
		}),
		TransitionsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "transitions_recorded_total",
			Help:      "Total number of audit transitions recorded by operation",
		}, []string{"operation"}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "decode_errors_total",
			Help:      "Total number of listing records that failed to decode",
		}),
		HighestSlotSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "highest_slot_seen",
			Help:      "Highest Solana slot number seen",
		}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		WSMessageLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_message_latency_seconds",
			Help:      "WebSocket message processing latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastSuccessfulScan: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_scan_timestamp",
			Help:      "Unix timestamp of last successful scan",
		}),
		WSReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnections",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordScan records a completed scan pass.
func RecordScan(status string, seconds float64, records int) {
	DefaultMetrics.ScansTotal.WithLabelValues(status).Inc()
	DefaultMetrics.ScanDuration.Observe(seconds)
	if status == "success" {
		DefaultMetrics.RecordsScanned.Set(float64(records))
	}
}

// RecordAccountUpdate increments the account updates counter.
func RecordAccountUpdate() {
	DefaultMetrics.AccountUpdatesTotal.Inc()
}

// RecordUpsert increments the snapshots upserted counter.
func RecordUpsert() {
	DefaultMetrics.SnapshotsUpserted.Inc()
}

// RecordDelete increments the snapshots deleted counter.
func RecordDelete() {
	DefaultMetrics.SnapshotsDeleted.Inc()
}

// RecordTransition records an audit transition by operation.
func RecordTransition(operation string) {
	DefaultMetrics.TransitionsRecorded.WithLabelValues(operation).Inc()
}

// RecordDecodeError increments the decode errors counter.
func RecordDecodeError() {
	DefaultMetrics.DecodeErrors.Inc()
}

// UpdateHighestSlot updates the highest slot seen gauge.
func UpdateHighestSlot(slot int64) {
	DefaultMetrics.HighestSlotSeen.Set(float64(slot))
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
