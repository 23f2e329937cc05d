// Package metrics collects and exposes Prometheus metrics for the
// orchestration core.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records the service metrics. A nil Collector is
// safe to call and records nothing.
type Collector struct {
	generations     *prometheus.CounterVec
	upstreamStatus  *prometheus.CounterVec
	upstreamLatency prometheus.Histogram
	payments        *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentgen_generations_total",
			Help: "Generation attempts by caller class and outcome.",
		}, []string{"caller", "outcome"}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentgen_upstream_status_total",
			Help: "Generation-service responses by HTTP status code.",
		}, []string{"status_code"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contentgen_upstream_latency_seconds",
			Help:    "Generation-service round-trip latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contentgen_payment_sessions_total",
			Help: "Payment sessions by terminal state.",
		}, []string{"result"}),
		registry: prometheus.NewRegistry(),
	}

	c.registry.MustRegister(
		c.generations,
		c.upstreamStatus,
		c.upstreamLatency,
		c.payments,
	)
	return c
}

// RecordGeneration counts one generation attempt.
func (c *Collector) RecordGeneration(callerClass, outcome string) {
	if c == nil {
		return
	}
	c.generations.WithLabelValues(callerClass, outcome).Inc()
}

// RecordUpstreamStatus counts an upstream response and its latency.
func (c *Collector) RecordUpstreamStatus(status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.upstreamStatus.WithLabelValues(strconv.Itoa(status)).Inc()
	c.upstreamLatency.Observe(elapsed.Seconds())
}

// RecordPaymentResult counts a payment session reaching a terminal state.
func (c *Collector) RecordPaymentResult(result string) {
	if c == nil {
		return
	}
	c.payments.WithLabelValues(result).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
