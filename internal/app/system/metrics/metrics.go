// Package metrics exposes EduSync's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the set of observations the app reports.
type Recorder interface {
	IncRequestsTotal(route string, status int)
	ObserveRequestDuration(route string, d time.Duration)
	ObserveStatsPoll(category, outcome string, d time.Duration)
	IncStatsCacheHits()
	IncStatsCacheMisses()
	Handler() http.Handler
}

// Metrics is the Prometheus-backed Recorder. Collectors live in their
// own registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	statsPolls        *prometheus.CounterVec
	statsPollDuration *prometheus.HistogramVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
}

// New returns a Prometheus Recorder, or a no-op one when disabled.
func New(enabled bool) Recorder {
	if !enabled {
		return Noop{}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edusync_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"route", "status"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edusync_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),

		statsPolls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edusync_stats_polls_total",
			Help: "Stats widget fetches by category and outcome (live, offline, error)",
		}, []string{"category", "outcome"}),

		statsPollDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edusync_stats_poll_duration_seconds",
			Help:    "Stats widget fetch duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"category"}),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "edusync_stats_cache_hits_total",
			Help: "Stats API cache hits",
		}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "edusync_stats_cache_misses_total",
			Help: "Stats API cache misses",
		}),
	}
}

func (m *Metrics) IncRequestsTotal(route string, status int) {
	m.requestsTotal.WithLabelValues(route, httpStatusBucket(status)).Inc()
}

func (m *Metrics) ObserveRequestDuration(route string, d time.Duration) {
	m.requestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) ObserveStatsPoll(category, outcome string, d time.Duration) {
	m.statsPolls.WithLabelValues(category, outcome).Inc()
	m.statsPollDuration.WithLabelValues(category).Observe(d.Seconds())
}

func (m *Metrics) IncStatsCacheHits()   { m.cacheHits.Inc() }
func (m *Metrics) IncStatsCacheMisses() { m.cacheMisses.Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// Noop is the Recorder used when metrics are disabled.
type Noop struct{}

func (Noop) IncRequestsTotal(string, int)                   {}
func (Noop) ObserveRequestDuration(string, time.Duration)   {}
func (Noop) ObserveStatsPoll(string, string, time.Duration) {}
func (Noop) IncStatsCacheHits()                             {}
func (Noop) IncStatsCacheMisses()                           {}
func (Noop) Handler() http.Handler                          { return http.NotFoundHandler() }
