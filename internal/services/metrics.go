package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric label values
const (
	OutcomeDone      = "done"
	OutcomeEmpty     = "empty"
	OutcomeErrored   = "errored"
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeMalformed = "malformed"
	OutcomeFailed    = "failed"
)

// Metrics tracks pipeline activity on its own registry. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	pipelineRuns      *prometheus.CounterVec
	searches          *prometheus.CounterVec
	extractionResults *prometheus.CounterVec
	eventsReturned    prometheus.Histogram
	pipelineDuration  prometheus.Histogram
}

// NewMetrics creates and registers the pipeline metrics
func NewMetrics() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.pipelineRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speaker_search",
		Name:      "pipeline_runs_total",
		Help:      "Pipeline runs by outcome",
	}, []string{"outcome"})
	m.searches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speaker_search",
		Name:      "searches_total",
		Help:      "Search calls by strategy and outcome",
	}, []string{"strategy", "outcome"})
	m.extractionResults = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "speaker_search",
		Name:      "extraction_results_total",
		Help:      "Per-URL extraction results by outcome",
	}, []string{"outcome"})
	m.eventsReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "speaker_search",
		Name:      "events_returned",
		Help:      "Events returned per successful run",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
	})
	m.pipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "speaker_search",
		Name:      "pipeline_duration_seconds",
		Help:      "Wall time of a pipeline run",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	m.registry.MustRegister(m.pipelineRuns, m.searches, m.extractionResults, m.eventsReturned, m.pipelineDuration)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRun records a finished pipeline run
func (m *Metrics) RecordRun(outcome string, duration time.Duration, events int) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(outcome).Inc()
	m.pipelineDuration.Observe(duration.Seconds())
	if outcome != OutcomeErrored {
		m.eventsReturned.Observe(float64(events))
	}
}

// RecordSearch records one search call
func (m *Metrics) RecordSearch(strategy string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.searches.WithLabelValues(strategy, outcome).Inc()
}

// RecordExtraction records per-URL results, or one failure when the whole call failed
func (m *Metrics) RecordExtraction(ok, malformed int, failed bool) {
	if m == nil {
		return
	}
	if failed {
		m.extractionResults.WithLabelValues(OutcomeFailed).Inc()
		return
	}
	m.extractionResults.WithLabelValues(OutcomeOK).Add(float64(ok))
	m.extractionResults.WithLabelValues(OutcomeMalformed).Add(float64(malformed))
}
