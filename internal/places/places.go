// Package places talks to the Places API (New): place details for the
// reconciliation job and photo media resolution. Provider wire shapes stay
// inside this package; callers see Metadata and typed failures.
package places

import (
	"context"
	"fmt"
	"strings"

	"github.com/locali/placesync/internal/errors"
)

// maxErrorBody is how much of a failed response body is kept for diagnostics.
const maxErrorBody = 200

// Metadata is the subset of place details the cache stores.
type Metadata struct {
	Name                string
	Address             string
	WeekdayDescriptions []string
	PhotoRef            string // first photo reference, "" when the place has none
}

// Client is the upstream surface consumed by the reconciler.
type Client interface {
	// FetchMetadata returns current details for placeRef. Failures match
	// errors.ErrUpstreamUnavailable.
	FetchMetadata(ctx context.Context, placeRef string) (Metadata, error)

	// ResolvePhotoURI exchanges a photo reference for a short-lived URI.
	// Failures match errors.ErrUpstreamUnavailable or errors.ErrMissingPhotoURI.
	ResolvePhotoURI(ctx context.Context, photoRef string, maxWidthPx int) (string, error)
}

// UpstreamError describes a rejected or unreachable provider request.
// StatusCode is 0 when no response was received.
type UpstreamError struct {
	Op         string // "details" or "media"
	Ref        string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s", e.Op, e.Ref)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": HTTP %d", e.StatusCode)
	}
	if e.Body != "" {
		fmt.Fprintf(&b, " - %s", e.Body)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Is makes every UpstreamError match errors.ErrUpstreamUnavailable.
func (e *UpstreamError) Is(target error) bool {
	return target == errors.ErrUpstreamUnavailable
}

// truncateBody keeps at most maxErrorBody bytes, dropping a rune split by the cut.
func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return strings.TrimSpace(strings.ToValidUTF8(string(body), ""))
}
