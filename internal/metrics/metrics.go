// Package metrics exposes Prometheus metrics for the HTTP surface and the
// journal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fiftytwo"

// Collector holds all metrics on its own registry, so several collectors
// can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	MomentMutations *prometheus.CounterVec
	SettingsUpdates prometheus.Counter
}

// NewCollector creates a collector. momentCount, if non-nil, backs the
// fiftytwo_moments gauge.
func NewCollector(momentCount func() int) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		MomentMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "moment_mutations_total",
				Help:      "Moments created, updated, deleted, or reloaded from disk",
			},
			[]string{"kind"},
		),
		SettingsUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settings_updates_total",
				Help:      "Total number of appearance settings changes",
			},
		),
	}
	c.registry.MustRegister(c.HTTPRequests, c.HTTPDuration, c.MomentMutations, c.SettingsUpdates)

	if momentCount != nil {
		c.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "moments",
				Help:      "Number of moments currently stored",
			},
			func() float64 { return float64(momentCount()) },
		))
	}
	return c
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and durations by chi route pattern.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		c.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// PublishMomentEvent counts a moment change.
func (c *Collector) PublishMomentEvent(kind, _ string) {
	c.MomentMutations.WithLabelValues(kind).Inc()
}

// PublishSettings counts a settings change.
func (c *Collector) PublishSettings(any) {
	c.SettingsUpdates.Inc()
}
