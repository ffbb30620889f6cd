// Package metrics provides the Prometheus collectors exported by the relay.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLMBuckets defines histogram buckets suited for chat upstream latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Metrics holds the relay collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	streamsActive   prometheus.Gauge
	tokensTotal     prometheus.Counter
	skippedTotal    *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
}

// New creates and registers the relay collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		// requestsTotal counts finished relay requests by route and status class.
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatrelay_requests_total",
				Help: "Total relay requests",
			},
			[]string{"route", "status"},
		),

		streamsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chatrelay_streams_active",
				Help: "Active transcoded streams",
			},
		),

		tokensTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chatrelay_stream_tokens_total",
				Help: "Encoded tokens written downstream",
			},
		),

		skippedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chatrelay_records_skipped_total",
				Help: "Upstream records that produced no token",
			},
			[]string{"reason"},
		),

		upstreamLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chatrelay_upstream_latency_seconds",
				Help:    "Time until the upstream answered with headers",
				Buckets: LLMBuckets,
			},
			[]string{"route"},
		),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.streamsActive,
		m.tokensTotal,
		m.skippedTotal,
		m.upstreamLatency,
	)

	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the exposition handler for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestCompleted records a finished request on route.
func (m *Metrics) RequestCompleted(route string, status int) {
	m.requestsTotal.WithLabelValues(route, StatusClass(status)).Inc()
}

// StreamStarted marks a streaming response as active. The returned func
// ends it and must be called exactly once.
func (m *Metrics) StreamStarted() func() {
	m.streamsActive.Inc()
	return m.streamsActive.Dec
}

// ObserveUpstreamLatency records how long the upstream took to respond.
func (m *Metrics) ObserveUpstreamLatency(route string, d time.Duration) {
	m.upstreamLatency.WithLabelValues(route).Observe(d.Seconds())
}

// TokenForwarded counts one token written downstream.
func (m *Metrics) TokenForwarded() {
	m.tokensTotal.Inc()
}

// RecordSkipped counts a record that did not produce a token.
func (m *Metrics) RecordSkipped(reason string) {
	m.skippedTotal.WithLabelValues(reason).Inc()
}

// StatusClass maps an HTTP status code to its class label, e.g. "4xx".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return fmt.Sprintf("%dxx", status/100)
}
