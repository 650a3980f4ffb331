// Package metrics registers the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "researchdesk"

// Research operation metrics.
var (
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Research operation duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation", "outcome"},
	)

	OperationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Research operation failures by error kind",
		},
		[]string{"operation", "kind"},
	)

	PapersFetchedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_fetched_total",
			Help:      "Papers returned by external sources",
		},
		[]string{"source"},
	)

	PapersStoredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_stored_total",
			Help:      "Papers written to the store",
		},
	)

	RankCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_candidates",
			Help:      "Number of fragments scored per similarity ranking",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	IngestEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_events_total",
			Help:      "Paper events consumed by the ingest worker",
		},
		[]string{"outcome"}, // stored / duplicate / invalid / failed
	)
)

func init() {
	prometheus.MustRegister(
		OperationDuration,
		OperationErrorsTotal,
		PapersFetchedTotal,
		PapersStoredTotal,
		RankCandidates,
		IngestEventsTotal,
	)
}

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
