// Package metrics collects ShadowLend telemetry with Prometheus: wallet
// session outcomes and cluster RPC round trips.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "shadowlend"

// Collector owns a private registry so tests and embedded uses never
// collide with the default one.
type Collector struct {
	registry *prometheus.Registry

	sessionOutcomes *prometheus.CounterVec
	rpcRequests     *prometheus.CounterVec
	rpcLatency      *prometheus.HistogramVec
}

// NewCollector registers the ShadowLend metrics and the Go runtime
// collectors on a new registry.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.sessionOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "session",
			Name:      "outcomes_total",
			Help:      "Wallet session outcomes by platform (connected, rejected, retried, failed, absent, disconnected, eager_*)",
		},
		[]string{"platform", "outcome"},
	)

	c.rpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "Cluster JSON-RPC round trips by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	c.rpcLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "Cluster JSON-RPC round trip latency",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
		},
		[]string{"method"},
	)

	c.registry.MustRegister(
		c.sessionOutcomes,
		c.rpcRequests,
		c.rpcLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Record counts a session outcome.
func (c *Collector) Record(platform, outcome string) {
	c.sessionOutcomes.WithLabelValues(platform, outcome).Inc()
}

// ObserveRPC counts one RPC round trip and its latency.
func (c *Collector) ObserveRPC(method, outcome string, elapsed time.Duration) {
	c.rpcRequests.WithLabelValues(method, outcome).Inc()
	c.rpcLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
