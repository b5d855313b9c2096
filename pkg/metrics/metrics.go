// Package metrics exposes prometheus instruments for term building and
// translation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TranslationsTotal counts frontend translations by frontend and outcome.
	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goreql_translations_total",
			Help: "Total number of source translations into terms",
		},
		[]string{"frontend", "status"},
	)
	// TranslationDuration is the latency of uncached translations.
	TranslationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "goreql_translation_duration_seconds",
			Help:    "Translation latency in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
		[]string{"frontend"},
	)
	// CacheLookupsTotal counts term cache lookups by result (hit, miss).
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goreql_cache_lookups_total",
			Help: "Total number of term cache lookups",
		},
		[]string{"result"},
	)
	// HandoffsTotal counts terms handed off to consumers by kind (raw, counted, wire).
	HandoffsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goreql_handoffs_total",
			Help: "Total number of built terms handed off",
		},
		[]string{"kind"},
	)
	// TermNodes observes the node count of handed-off terms.
	TermNodes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "goreql_term_nodes",
			Help:    "Number of nodes in handed-off terms",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)
	// RequestTotal counts HTTP requests of the compile service.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "goreql_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)

// ObserveTranslation records the outcome of one translation.
func ObserveTranslation(frontend string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	TranslationsTotal.WithLabelValues(frontend, status).Inc()
	if err == nil {
		TranslationDuration.WithLabelValues(frontend).Observe(seconds)
	}
}

// ObserveCache records a cache lookup.
func ObserveCache(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
		return
	}
	CacheLookupsTotal.WithLabelValues("miss").Inc()
}

// ObserveHandoff records a term handed off as kind with the given node count.
func ObserveHandoff(kind string, nodes int) {
	HandoffsTotal.WithLabelValues(kind).Inc()
	TermNodes.Observe(float64(nodes))
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
