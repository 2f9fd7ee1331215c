package reconcile

import (
	"fmt"
	"strings"
	"time"

	"github.com/locali/placesync/internal/observability/metrics"
)

// Outcome is the terminal state of one location in a run.
type Outcome int

const (
	// Updated means the entry was rewritten from fresh upstream data.
	Updated Outcome = iota
	// PreservedUnchanged means upstream failed and the prior entry, if any,
	// was left exactly as it was.
	PreservedUnchanged
	// SkippedNoReference means the location has no placeRef.
	SkippedNoReference
)

// String returns the metric label of o.
func (o Outcome) String() string {
	switch o {
	case Updated:
		return metrics.OutcomeUpdated
	case PreservedUnchanged:
		return metrics.OutcomePreservedUnchanged
	case SkippedNoReference:
		return metrics.OutcomeSkippedNoReference
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Stage names where a degraded failure happened.
const (
	StageMetadata = "metadata"
	StagePhotoURI = "photo_uri"
	StageDownload = "download"
)

// Degraded records one absorbed per-location failure.
type Degraded struct {
	PlaceRef string
	Stage    string
	Reason   string
}

// Report summarizes a run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	DryRun    bool

	Updated    int
	Preserved  int
	Skipped    int
	Duplicates int

	PhotosDownloaded int
	PhotosSkipped    int // existing asset, no transfer attempted
	PhotoFailures    int

	Degraded     []Degraded
	CacheEntries int
}

func (r *Report) add(o Outcome) {
	switch o {
	case Updated:
		r.Updated++
	case PreservedUnchanged:
		r.Preserved++
	case SkippedNoReference:
		r.Skipped++
	}
}

// HasDegraded reports whether any location failed partially or fully.
func (r *Report) HasDegraded() bool { return len(r.Degraded) > 0 }

// Summary renders a one-line human summary.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "updated %d, preserved %d, skipped %d, photos downloaded %d",
		r.Updated, r.Preserved, r.Skipped, r.PhotosDownloaded)
	if r.PhotoFailures > 0 {
		fmt.Fprintf(&b, ", photo failures %d", r.PhotoFailures)
	}
	if r.DryRun {
		b.WriteString(" (dry run)")
	}
	if len(r.Degraded) > 0 {
		refs := make([]string, 0, len(r.Degraded))
		for _, d := range r.Degraded {
			refs = append(refs, d.PlaceRef+" ["+d.Stage+"]")
		}
		fmt.Fprintf(&b, "; degraded: %s", strings.Join(refs, ", "))
	}
	return b.String()
}
