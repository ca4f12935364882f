// Package http provides the HTTP transport adapter that exposes the PDP
// over the wire: GET /getDecision, GET /health, GET /metrics.
package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics the façade records for every
// PDP.Evaluate call it drives.
type Metrics struct {
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration prometheus.Histogram
	IndeterminateTotal *prometheus.CounterVec
}

// NewMetrics creates and registers every metric with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		EvaluationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pdp",
				Name:      "evaluations_total",
				Help:      "Total PDP evaluations by decision.",
			},
			[]string{"decision"},
		),
		EvaluationDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pdp",
				Name:      "evaluation_duration_seconds",
				Help:      "PDP evaluation latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		IndeterminateTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pdp",
				Name:      "indeterminate_total",
				Help:      "Total Indeterminate decisions by status code.",
			},
			[]string{"status_code"},
		),
	}
}
