// Package metrics exposes Prometheus instrumentation for classification runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bantoinese83/Portfolio-Watchdog/internal/model"
)

// Registry holds every watchdog metric on its own prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	Classifications *prometheus.CounterVec
	Errors          *prometheus.CounterVec
	FetchAttempts   *prometheus.CounterVec
	CacheRequests   *prometheus.CounterVec
	Duration        prometheus.Histogram
}

// New creates and registers all metrics.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Classifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchdog_classifications_total",
				Help: "Completed classifications by regime",
			},
			[]string{"regime"},
		),
		Errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchdog_classification_errors_total",
				Help: "Failed classifications by error kind",
			},
			[]string{"kind"},
		),
		FetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchdog_fetch_attempts_total",
				Help: "Data provider attempts by provider and result",
			},
			[]string{"provider", "result"},
		),
		CacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "watchdog_cache_requests_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "watchdog_classification_duration_seconds",
				Help:    "End to end duration of one ticker classification",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
	}
	r.reg.MustRegister(r.Classifications, r.Errors, r.FetchAttempts, r.CacheRequests, r.Duration)
	return r
}

// ObserveClassification counts a result and its latency.
func (r *Registry) ObserveClassification(regime model.Regime, took time.Duration) {
	r.Classifications.WithLabelValues(string(regime)).Inc()
	r.Duration.Observe(took.Seconds())
}

// ObserveError counts a failure. kind is a short label such as "insufficient_data".
func (r *Registry) ObserveError(kind string) {
	r.Errors.WithLabelValues(kind).Inc()
}

// ObserveFetch counts one provider attempt.
func (r *Registry) ObserveFetch(provider, result string) {
	r.FetchAttempts.WithLabelValues(provider, result).Inc()
}

// ObserveCache counts one lookup. hit selects the "hit" or "miss" label.
func (r *Registry) ObserveCache(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.CacheRequests.WithLabelValues(cache, result).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
