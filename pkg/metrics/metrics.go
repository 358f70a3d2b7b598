// Package metrics defines the Prometheus collectors exported by the warren
// server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "warren"

// Operation outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the catalog collectors, all registered on a single registry.
type Metrics struct {
	registry *prometheus.Registry

	// OpsTotal counts catalog operations by op and status
	OpsTotal *prometheus.CounterVec

	// AnalysisDurationSeconds measures rabbit-hole and island analyses
	AnalysisDurationSeconds *prometheus.HistogramVec

	// AnalysisRejectedTotal counts analyses refused because the queue was full
	AnalysisRejectedTotal prometheus.Counter

	// Categories tracks the number of stored categories
	Categories prometheus.Gauge

	// SimilarityPairs tracks the number of similarity pairs
	SimilarityPairs prometheus.Gauge

	// EventPublishFailuresTotal counts change events the publisher rejected
	EventPublishFailuresTotal prometheus.Counter
}

// New creates the collectors on a fresh registry that also carries the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry creates the collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		OpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_ops_total",
				Help:      "Total number of catalog operations",
			},
			[]string{"op", "status"},
		),

		AnalysisDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analysis_duration_seconds",
				Help:      "Latency of similarity graph analyses",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"kind"},
		),

		AnalysisRejectedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analysis_rejected_total",
				Help:      "Total number of analyses rejected because the worker queue was full",
			},
		),

		Categories: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "categories",
				Help:      "Number of stored categories",
			},
		),

		SimilarityPairs: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "similarity_pairs",
				Help:      "Number of undirected similarity pairs",
			},
		),

		EventPublishFailuresTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_publish_failures_total",
				Help:      "Total number of change events that failed to publish",
			},
		),
	}
}

// ObserveOp counts one operation, labelled by whether err is nil.
func (m *Metrics) ObserveOp(op string, err error) {
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.OpsTotal.WithLabelValues(op, status).Inc()
}

// ObserveAnalysis records how long an analysis of the given kind took.
func (m *Metrics) ObserveAnalysis(kind string, started time.Time) {
	m.AnalysisDurationSeconds.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
