package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SyncMetrics contains Prometheus metrics for reconciliation runs.
type SyncMetrics struct {
	registry *prometheus.Registry

	outcomes         *prometheus.CounterVec
	photoDownloads   prometheus.Counter
	photoFailures    *prometheus.CounterVec
	runDuration      prometheus.Gauge
	cacheEntries     prometheus.Gauge
	lastRunTimestamp prometheus.Gauge
	lastSuccess      prometheus.Gauge
}

var _ Recorder = (*SyncMetrics)(nil)

// NewSyncMetrics creates and registers reconciliation metrics.
func NewSyncMetrics(registry *prometheus.Registry) (*SyncMetrics, error) {
	m := &SyncMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register sync metrics: %w", err)
	}
	return m, nil
}

func (m *SyncMetrics) initMetrics() {
	m.outcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placesync_locations_total",
			Help: "Locations processed, by terminal outcome",
		},
		[]string{"outcome"}, // updated, preserved_unchanged, skipped_no_reference
	)

	m.photoDownloads = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "placesync_photo_downloads_total",
		Help: "Photos written to disk",
	})

	m.photoFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "placesync_photo_failures_total",
			Help: "Photos that could not be refreshed, by reason",
		},
		[]string{"reason"},
	)

	m.runDuration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "placesync_run_duration_seconds",
		Help: "Duration of the last reconciliation run",
	})

	m.cacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "placesync_cache_entries",
		Help: "Entries in the cache document after the last run",
	})

	m.lastRunTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "placesync_last_run_timestamp_seconds",
		Help: "Unix time of the last run",
	})

	m.lastSuccess = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "placesync_last_run_success",
		Help: "1 if the last run persisted the cache, 0 otherwise",
	})

	// Expose every outcome from the first scrape.
	for _, o := range []string{OutcomeUpdated, OutcomePreservedUnchanged, OutcomeSkippedNoReference} {
		m.outcomes.WithLabelValues(o)
	}
}

// RecordOutcome implements Recorder.
func (m *SyncMetrics) RecordOutcome(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}

// RecordPhotoDownload implements Recorder.
func (m *SyncMetrics) RecordPhotoDownload() {
	m.photoDownloads.Inc()
}

// RecordPhotoFailure implements Recorder.
func (m *SyncMetrics) RecordPhotoFailure(reason string) {
	m.photoFailures.WithLabelValues(reason).Inc()
}

// RecordRun implements Recorder.
func (m *SyncMetrics) RecordRun(durationSeconds float64, cacheEntries int, success bool) {
	m.runDuration.Set(durationSeconds)
	m.cacheEntries.Set(float64(cacheEntries))
	m.lastRunTimestamp.Set(float64(time.Now().Unix()))
	if success {
		m.lastSuccess.Set(1)
	} else {
		m.lastSuccess.Set(0)
	}
}

// Describe implements the prometheus.Collector interface.
func (m *SyncMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.outcomes.Describe(ch)
	m.photoDownloads.Describe(ch)
	m.photoFailures.Describe(ch)
	m.runDuration.Describe(ch)
	m.cacheEntries.Describe(ch)
	m.lastRunTimestamp.Describe(ch)
	m.lastSuccess.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *SyncMetrics) Collect(ch chan<- prometheus.Metric) {
	m.outcomes.Collect(ch)
	m.photoDownloads.Collect(ch)
	m.photoFailures.Collect(ch)
	m.runDuration.Collect(ch)
	m.cacheEntries.Collect(ch)
	m.lastRunTimestamp.Collect(ch)
	m.lastSuccess.Collect(ch)
}
