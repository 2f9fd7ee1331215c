// Package metrics provides constants used across metric definitions.
package metrics

// Reconciliation outcome labels.
const (
	OutcomeUpdated            = "updated"
	OutcomePreservedUnchanged = "preserved_unchanged"
	OutcomeSkippedNoReference = "skipped_no_reference"
)

// Photo failure reasons.
const (
	ReasonUpstream   = "upstream_unavailable"
	ReasonMissingURI = "missing_photo_uri"
	ReasonDownload   = "download_failed"
	ReasonOther      = "other"
)

// Upstream endpoint labels.
const (
	EndpointDetails = "details"
	EndpointMedia   = "media"
	EndpointPhoto   = "photo"
)

// Histogram bucket parameters.
const (
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~4s range).
	BucketStart1ms = 0.001

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
