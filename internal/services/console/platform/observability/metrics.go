// Package observability holds the console's Prometheus collectors and request
// logging middleware.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every console collector.
type Metrics struct {
	APIRequests      *prometheus.CounterVec
	APIDuration      *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
	ActiveSessions   prometheus.Gauge
	EventsDispatched *prometheus.CounterVec
	PatchesStreamed  prometheus.Counter
	CacheLookups     *prometheus.CounterVec
}

var (
	once   sync.Once
	global *Metrics
)

// Global returns the process-wide collectors, registering them on first use.
func Global() *Metrics {
	once.Do(func() {
		global = NewMetrics()
		prometheus.MustRegister(
			global.APIRequests,
			global.APIDuration,
			global.HTTPRequests,
			global.ActiveSessions,
			global.EventsDispatched,
			global.PatchesStreamed,
			global.CacheLookups,
		)
	})
	return global
}

// NewMetrics builds unregistered collectors, for tests and custom registries.
func NewMetrics() *Metrics {
	return &Metrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gmconsole",
			Name:      "api_requests_total",
			Help:      "Backend API requests by method and status",
		}, []string{"method", "status"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gmconsole",
			Name:      "api_request_duration_seconds",
			Help:      "Backend API request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gmconsole",
			Name:      "http_requests_total",
			Help:      "Console HTTP requests by route and status",
		}, []string{"route", "status"}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gmconsole",
			Name:      "sessions_active",
			Help:      "Live console sessions",
		}),
		EventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gmconsole",
			Name:      "events_dispatched_total",
			Help:      "Browser events dispatched by type",
		}, []string{"type"}),
		PatchesStreamed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gmconsole",
			Name:      "patches_streamed_total",
			Help:      "Document patches sent to browsers",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gmconsole",
			Name:      "library_cache_lookups_total",
			Help:      "Library cache lookups by bucket and result",
		}, []string{"bucket", "result"}),
	}
}
