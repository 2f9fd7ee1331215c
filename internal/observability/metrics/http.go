// Package metrics provides HTTP metrics for the upstream client and the proxy.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics contains Prometheus metrics for outgoing upstream requests and
// incoming proxy requests.
type HTTPMetrics struct {
	registry *prometheus.Registry

	upstreamRequestsTotal   *prometheus.CounterVec
	upstreamRequestDuration *prometheus.HistogramVec
	upstreamErrors          *prometheus.CounterVec

	proxyRequestsTotal   *prometheus.CounterVec
	proxyRequestDuration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(registry *prometheus.Registry) (*HTTPMetrics, error) {
	m := &HTTPMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register HTTP metrics: %w", err)
	}
	return m, nil
}

func (m *HTTPMetrics) initMetrics() {
	m.upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placesync_upstream_requests_total",
			Help: "Requests sent to the place provider",
		},
		[]string{"endpoint", "status_code"}, // endpoint: details, media, photo
	)

	m.upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placesync_upstream_request_duration_seconds",
			Help:    "Time taken for upstream requests",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~40s
		},
		[]string{"endpoint"},
	)

	m.upstreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placesync_upstream_transport_errors_total",
			Help: "Upstream requests that received no response",
		},
		[]string{"endpoint"},
	)

	m.proxyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placesync_proxy_requests_total",
			Help: "Requests served by the proxy",
		},
		[]string{"method", "path", "status_code"},
	)

	m.proxyRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "placesync_proxy_request_duration_seconds",
			Help:    "Time taken to serve proxy requests",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~4s
		},
		[]string{"method", "path"},
	)
}

// RecordUpstreamRequest records one upstream exchange. A statusCode of 0
// means no response was received.
func (m *HTTPMetrics) RecordUpstreamRequest(endpoint string, statusCode int, durationSeconds float64) {
	if statusCode == 0 {
		m.upstreamErrors.WithLabelValues(endpoint).Inc()
	}
	m.upstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	m.upstreamRequestDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordProxyRequest records one served proxy request.
func (m *HTTPMetrics) RecordProxyRequest(method, path string, statusCode int, durationSeconds float64) {
	m.proxyRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.proxyRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// Describe implements the prometheus.Collector interface.
func (m *HTTPMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.upstreamRequestsTotal.Describe(ch)
	m.upstreamRequestDuration.Describe(ch)
	m.upstreamErrors.Describe(ch)
	m.proxyRequestsTotal.Describe(ch)
	m.proxyRequestDuration.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *HTTPMetrics) Collect(ch chan<- prometheus.Metric) {
	m.upstreamRequestsTotal.Collect(ch)
	m.upstreamRequestDuration.Collect(ch)
	m.upstreamErrors.Collect(ch)
	m.proxyRequestsTotal.Collect(ch)
	m.proxyRequestDuration.Collect(ch)
}
