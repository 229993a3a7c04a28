// Package metrics defines the Prometheus metric collectors used across the
// corpus analytics services and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	TokensConsumedTotal  *prometheus.CounterVec
	DocumentsTotal       *prometheus.GaugeVec
	VocabularySize       *prometheus.GaugeVec
	CorpusBuildsTotal    *prometheus.CounterVec
	ComparisonsTotal     *prometheus.CounterVec
	ComparisonLatency    prometheus.Histogram
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	SnapshotsTotal       *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		TokensConsumedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokens_consumed_total",
				Help: "Total token records consumed into builders, per corpus.",
			},
			[]string{"corpus"},
		),
		DocumentsTotal: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corpus_documents_total",
				Help: "Number of documents accumulated per corpus.",
			},
			[]string{"corpus"},
		),
		VocabularySize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "corpus_vocabulary_size",
				Help: "Number of distinct terms per built corpus matrix.",
			},
			[]string{"corpus"},
		),
		CorpusBuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_builds_total",
				Help: "Total matrix build operations by status.",
			},
			[]string{"status"},
		),
		ComparisonsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_comparisons_total",
				Help: "Total corpus comparisons by result type (ok, no_overlap, error).",
			},
			[]string{"result_type"},
		),
		ComparisonLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "corpus_comparison_duration_seconds",
				Help:    "Corpus comparison latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of comparison cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of comparison cache misses.",
			},
		),
		SnapshotsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corpus_snapshots_total",
				Help: "Total matrix snapshot writes by status.",
			},
			[]string{"status"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.TokensConsumedTotal,
		m.DocumentsTotal,
		m.VocabularySize,
		m.CorpusBuildsTotal,
		m.ComparisonsTotal,
		m.ComparisonLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.SnapshotsTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
