// Package metrics provides custom Prometheus metrics for placesync.
package metrics

// Recorder is what the reconciler reports to. Depending on this interface
// instead of SyncMetrics keeps the engine testable without a registry.
type Recorder interface {
	// RecordOutcome counts one location with its terminal outcome.
	RecordOutcome(outcome string)

	// RecordPhotoDownload counts one photo written to disk.
	RecordPhotoDownload()

	// RecordPhotoFailure counts a photo that could not be refreshed.
	RecordPhotoFailure(reason string)

	// RecordRun records a finished run.
	RecordRun(durationSeconds float64, cacheEntries int, success bool)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOutcome(string) {}
func (NopRecorder) RecordPhotoDownload() {}
func (NopRecorder) RecordPhotoFailure(string) {}
func (NopRecorder) RecordRun(float64, int, bool) {}
