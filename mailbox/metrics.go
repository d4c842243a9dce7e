package mailbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "mboxsearch"

// Metrics holds the Prometheus collectors updated by a Service.
type Metrics struct {
	MessagesIndexed prometheus.Counter
	MessagesSkipped prometheus.Counter
	BatchesFailed   prometheus.Counter
	BatchDuration   prometheus.Histogram
	IndexSize       prometheus.Gauge
	Searches        *prometheus.CounterVec
	SearchDuration  prometheus.Histogram
}

// NewMetrics creates the service collectors and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessagesIndexed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "messages_indexed_total",
			Help:      "Messages whose embedding was added to the vector index",
		}),
		MessagesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "messages_skipped_total",
			Help:      "Messages not indexed because they have no usable body",
		}),
		BatchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "batches_failed_total",
			Help:      "Embedding batches that failed and were left unindexed",
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "batch_duration_seconds",
			Help:      "Time to embed and index one batch",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		IndexSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "index",
			Name:      "vectors",
			Help:      "Number of vectors held by the vector index",
		}),
		Searches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Search queries by outcome",
		}, []string{"result"}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "query_duration_seconds",
			Help:      "End-to-end search latency including embedding and hydration",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
	}
}
