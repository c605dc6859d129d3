// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the ingestion core. There is
// one counter per failure-taxonomy entry so every non-fatal skip is
// visible to the metrics collaborator.
type Metrics struct {
	// Ingestion throughput
	EventsProcessed      *prometheus.CounterVec
	SalesRecorded        prometheus.Counter
	OffersRecorded       prometheus.Counter
	CancellationsRecorded prometheus.Counter

	// Failure taxonomy
	DecodeFailures      prometheus.Counter
	ClassificationGaps  prometheus.Counter
	DuplicateSkips      *prometheus.CounterVec
	TransactionFailures prometheus.Counter
	ArchiveFailures     prometheus.Counter
	AuditViolations     prometheus.Counter

	// Stream progress
	HighestBlockSeen prometheus.Gauge
	LogBufferSize    prometheus.Gauge

	// Latency
	SaleUnitDuration prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "flowties"
	}

	return &Metrics{
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "events_processed_total",
			Help:      "Total number of protocol events processed by event name",
		}, []string{"event"}),
		SalesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "sales_recorded_total",
			Help:      "Total number of sale records written",
		}),
		OffersRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "offers_recorded_total",
			Help:      "Total number of offer records written",
		}),
		CancellationsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "cancellations_recorded_total",
			Help:      "Total number of cancellation records written",
		}),

		DecodeFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "decode_failures_total",
			Help:      "Total number of logs skipped because decoding failed",
		}),
		ClassificationGaps: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "classification_gaps_total",
			Help:      "Total number of fulfilled orders recorded with sentinel asset legs",
		}),
		DuplicateSkips: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicate_skips_total",
			Help:      "Total number of redelivered events short-circuited by the idempotency guard",
		}, []string{"record"}),
		TransactionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "transaction_failures_total",
			Help:      "Total number of sale-effect units rolled back and surfaced for retry",
		}),
		ArchiveFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "archive_failures_total",
			Help:      "Total number of best-effort analytic archive writes that failed",
		}),
		AuditViolations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "violations_total",
			Help:      "Total number of aggregate invariant violations found by reconciliation",
		}),

		HighestBlockSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "highest_block_seen",
			Help:      "Highest block number seen on the log stream",
		}),
		LogBufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "log_buffer_size",
			Help:      "Current number of blocks in the ordering buffer",
		}),

		SaleUnitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "sale_unit_duration_seconds",
			Help:      "Duration of the transactional sale-effect unit",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEventProcessed increments the processed counter for an event name.
func RecordEventProcessed(event string) {
	DefaultMetrics.EventsProcessed.WithLabelValues(event).Inc()
}

// RecordSale increments the sales recorded counter.
func RecordSale() {
	DefaultMetrics.SalesRecorded.Inc()
}

// RecordOffer increments the offers recorded counter.
func RecordOffer() {
	DefaultMetrics.OffersRecorded.Inc()
}

// RecordCancellation increments the cancellations recorded counter.
func RecordCancellation() {
	DefaultMetrics.CancellationsRecorded.Inc()
}

// RecordDecodeFailure increments the decode failure counter.
func RecordDecodeFailure() {
	DefaultMetrics.DecodeFailures.Inc()
}

// RecordClassificationGap increments the classification gap counter.
func RecordClassificationGap() {
	DefaultMetrics.ClassificationGaps.Inc()
}

// RecordDuplicateSkip increments the duplicate skip counter for a record kind.
func RecordDuplicateSkip(record string) {
	DefaultMetrics.DuplicateSkips.WithLabelValues(record).Inc()
}

// RecordTransactionFailure increments the transaction failure counter.
func RecordTransactionFailure() {
	DefaultMetrics.TransactionFailures.Inc()
}

// RecordArchiveFailure increments the archive failure counter.
func RecordArchiveFailure() {
	DefaultMetrics.ArchiveFailures.Inc()
}

// RecordAuditViolation adds found violations to the audit counter.
func RecordAuditViolation(count int) {
	DefaultMetrics.AuditViolations.Add(float64(count))
}

// UpdateHighestBlock updates the highest block seen gauge.
func UpdateHighestBlock(block uint64) {
	DefaultMetrics.HighestBlockSeen.Set(float64(block))
}

// UpdateLogBufferSize updates the ordering buffer gauge.
func UpdateLogBufferSize(blocks int) {
	DefaultMetrics.LogBufferSize.Set(float64(blocks))
}

// ObserveSaleUnit records the duration of one sale-effect unit.
func ObserveSaleUnit(seconds float64) {
	DefaultMetrics.SaleUnitDuration.Observe(seconds)
}
