// Package metrics provides prometheus instrumentation for the proxy:
// request counts and latency, upstream dispatch outcomes by relay mode,
// tool-call extraction counters, and an upstream reachability gauge.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Collector owns the prometheus registry and all proxy metrics.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	upstreamRequestsTotal *prometheus.CounterVec
	upstreamUp            prometheus.Gauge

	toolCallsExtracted prometheus.Counter
	callBlocksSkipped  prometheus.Counter
}

// NewCollector creates and registers all proxy metrics under the given
// namespace. Go runtime and process collectors are included, matching the
// default prometheus exposition.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of proxy requests by path and status code",
			},
			[]string{"path", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Proxy request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),

		upstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Total upstream dispatches by relay mode and outcome",
			},
			[]string{"mode", "status"},
		),

		upstreamUp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "upstream_up",
				Help:      "Whether the last upstream reachability probe succeeded",
			},
		),

		toolCallsExtracted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_extracted_total",
				Help:      "Total tool calls parsed out of upstream replies",
			},
		),

		callBlocksSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_call_blocks_skipped_total",
				Help:      "Total malformed call-markup blocks skipped during extraction",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.requestsTotal,
		c.requestDuration,
		c.upstreamRequestsTotal,
		c.upstreamUp,
		c.toolCallsExtracted,
		c.callBlocksSkipped,
	)

	return c
}

// RecordRequest records one completed proxy request.
func (c *Collector) RecordRequest(path, status string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(path, status).Inc()
	c.requestDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordUpstream records one upstream dispatch.
// mode is "buffered" or "stream"; status is "success" or "error".
func (c *Collector) RecordUpstream(mode, status string) {
	c.upstreamRequestsTotal.WithLabelValues(mode, status).Inc()
}

// SetUpstreamUp records the result of a reachability probe.
func (c *Collector) SetUpstreamUp(up bool) {
	if up {
		c.upstreamUp.Set(1)
	} else {
		c.upstreamUp.Set(0)
	}
}

// RecordExtraction records the outcome of one extraction pass.
func (c *Collector) RecordExtraction(accepted, skipped int) {
	if accepted > 0 {
		c.toolCallsExtracted.Add(float64(accepted))
	}
	if skipped > 0 {
		c.callBlocksSkipped.Add(float64(skipped))
	}
}
