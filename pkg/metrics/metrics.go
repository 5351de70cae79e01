// Package metrics exposes Prometheus collectors for stream sessions.
//
// A nil *Collector is valid and records nothing, so callers never need to
// guard their instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "revchat"

// Outcome labels for finished sessions.
const (
	OutcomeDone      = "done"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// Collector groups the stream session collectors behind one registry.
type Collector struct {
	registry *prometheus.Registry

	sessionsTotal   *prometheus.CounterVec
	sessionsActive  prometheus.Gauge
	eventsTotal     prometheus.Counter
	bytesTotal      prometheus.Counter
	sessionDuration *prometheus.HistogramVec
}

// New creates a Collector registered on a fresh registry.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "sessions_total",
				Help:      "Total number of finished stream sessions",
			},
			[]string{"outcome"}, // outcome: done, failed, cancelled
		),
		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "sessions_active",
				Help:      "Number of stream sessions currently open",
			},
		),
		eventsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "events_total",
				Help:      "Total number of event payloads delivered",
			},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "bytes_total",
				Help:      "Total raw bytes read from streams",
			},
		),
		sessionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "stream",
				Name:      "session_duration_seconds",
				Help:      "Duration of stream sessions from open to termination",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"outcome"},
		),
	}

	c.registry.MustRegister(
		c.sessionsTotal,
		c.sessionsActive,
		c.eventsTotal,
		c.bytesTotal,
		c.sessionDuration,
	)

	return c
}

// SessionStarted records a newly opened session.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.sessionsActive.Inc()
}

// SessionFinished records a session's terminal outcome.
func (c *Collector) SessionFinished(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.sessionsActive.Dec()
	c.sessionsTotal.WithLabelValues(outcome).Inc()
	c.sessionDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// EventDelivered records one payload handed to a handler.
func (c *Collector) EventDelivered() {
	if c == nil {
		return
	}
	c.eventsTotal.Inc()
}

// BytesRead adds n raw stream bytes.
func (c *Collector) BytesRead(n int64) {
	if c == nil || n <= 0 {
		return
	}
	c.bytesTotal.Add(float64(n))
}

// Registry returns the underlying registry, or nil for a nil Collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the collector's metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
