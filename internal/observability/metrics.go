// Package observability wires the Prometheus collectors of placesync: a
// registry, the /metrics handler for the proxy and the textfile export used
// after a sync run.
package observability

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/locali/placesync/internal/httpclient"
	"github.com/locali/placesync/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Sync     *metrics.SyncMetrics
	HTTP     *metrics.HTTPMetrics
}

// NewMetrics creates a registry and registers every collector on it.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	syncMetrics, err := metrics.NewSyncMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	return &Metrics{
		registry: registry,
		Sync:     syncMetrics,
		HTTP:     httpMetrics,
	}, nil
}

// EnableRuntimeCollectors adds Go runtime and process collectors. Only the
// long-running proxy exposes them.
func (m *Metrics) EnableRuntimeCollectors() error {
	if err := m.registry.Register(collectors.NewGoCollector()); err != nil {
		return fmt.Errorf("failed to register Go collector: %w", err)
	}
	if err := m.registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return fmt.Errorf("failed to register process collector: %w", err)
	}
	return nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// WriteTextfile writes the registry to path for the node-exporter textfile
// collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

// InstrumentClient records every request made through hc as an upstream
// request.
func (m *Metrics) InstrumentClient(hc *httpclient.Client) {
	hc.Observe(func(ex httpclient.Exchange) {
		status := 0
		if ex.Response != nil {
			status = ex.Response.StatusCode
		}
		m.HTTP.RecordUpstreamRequest(EndpointFor(ex.Request), status, ex.Elapsed.Seconds())
	})
}

// EndpointFor classifies an outgoing request for metric labels.
func EndpointFor(req *http.Request) string {
	p := req.URL.Path
	switch {
	case strings.HasPrefix(p, "/v1/") && strings.HasSuffix(p, "/media"):
		return metrics.EndpointMedia
	case strings.HasPrefix(p, "/v1/places/"):
		return metrics.EndpointDetails
	default:
		return metrics.EndpointPhoto
	}
}
