package metrics

import "github.com/prometheus/client_golang/prometheus"

// Indexer Prometheus metrics.
var (
	IndexWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invoicedex",
			Name:      "index_writes_total",
			Help:      "Index document writes by final outcome",
		},
		[]string{"status"}, // "ok" / "dead_letter"
	)

	IndexRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "invoicedex",
			Name:      "index_retries_total",
			Help:      "Index write attempts that failed and were retried",
		},
	)

	IndexDeadLettersTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "invoicedex",
			Name:      "index_dead_letters_total",
			Help:      "Invoices whose index write failed permanently",
		},
	)

	IndexQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "invoicedex",
			Name:      "index_queue_depth",
			Help:      "Index tasks waiting for a worker",
		},
	)

	IndexWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "invoicedex",
			Name:      "index_write_duration_seconds",
			Help:      "Time from task pickup to final outcome, retries included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
	)
)

var indexerMetricsRegistered bool

// RegisterIndexerMetrics registers Prometheus indexer metrics. Must be called once from main.
func RegisterIndexerMetrics() {
	if indexerMetricsRegistered {
		return
	}
	prometheus.MustRegister(IndexWritesTotal)
	prometheus.MustRegister(IndexRetriesTotal)
	prometheus.MustRegister(IndexDeadLettersTotal)
	prometheus.MustRegister(IndexQueueDepth)
	prometheus.MustRegister(IndexWriteDuration)
	indexerMetricsRegistered = true
}
