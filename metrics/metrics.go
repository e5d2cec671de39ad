// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup outcomes.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Metrics groups every collector so each server (or test) owns its registry.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	CacheLookups        *prometheus.CounterVec
	RateLimitDecisions  *prometheus.CounterVec
	LinksCreated        prometheus.Counter
	Redirects           prometheus.Counter
	ClickRecordFailures prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "redirect_cache_lookups_total",
				Help: "Redirect cache lookups by outcome",
			},
			[]string{"result"},
		),
		RateLimitDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_decisions_total",
				Help: "Rate limiter decisions by scope and outcome",
			},
			[]string{"scope", "decision"},
		),
		LinksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "links_created_total",
			Help: "Short links created",
		}),
		Redirects: factory.NewCounter(prometheus.CounterOpts{
			Name: "redirects_total",
			Help: "Redirects served",
		}),
		ClickRecordFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "click_record_failures_total",
			Help: "Click events that could not be recorded",
		}),
	}
}
