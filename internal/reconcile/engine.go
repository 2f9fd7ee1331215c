// Package reconcile brings the place cache in line with upstream, one
// location at a time. A failure for one location never touches its cached
// entry; only a missing credential, an unreadable location list, a failed
// save or cancellation abort a run.
package reconcile

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/locali/placesync/internal/cachestore"
	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/locations"
	"github.com/locali/placesync/internal/logger"
	"github.com/locali/placesync/internal/observability/metrics"
	"github.com/locali/placesync/internal/places"
)

// timestampLayout matches what the site's front end has always stored.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// PhotoStore is the part of photostore.Store the engine drives.
type PhotoStore interface {
	HasAsset(existingPath string) bool
	Download(ctx context.Context, placeRef, uri string) (string, error)
}

// CacheStore is the part of cachestore.Store the engine drives.
type CacheStore interface {
	Load() cachestore.Cache
	Save(cachestore.Cache) error
}

// Options tune a run.
type Options struct {
	Delay      time.Duration    // minimum spacing between locations that contact upstream
	MaxWidthPx int              // photo width hint
	DryRun     bool             // no downloads, no save
	Now        func() time.Time // clock; time.Now when nil
}

// Engine runs reconciliations. It holds no per-run state.
type Engine struct {
	client places.Client
	photos PhotoStore
	cache  CacheStore
	rec    metrics.Recorder
	log    logger.Logger
	opts   Options
}

// New returns an Engine. rec and log may be nil.
func New(client places.Client, photos PhotoStore, cache CacheStore, opts Options, rec metrics.Recorder, log logger.Logger) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxWidthPx <= 0 {
		opts.MaxWidthPx = 900
	}
	if rec == nil {
		rec = metrics.NopRecorder{}
	}
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &Engine{
		client: client,
		photos: photos,
		cache:  cache,
		rec:    rec,
		log:    log.Module("reconcile"),
		opts:   opts,
	}
}

// Run is the state of one reconciliation pass.
type Run struct {
	ID        string
	Start     time.Time
	UpdatedAt string // Start formatted for cache entries

	engine  *Engine
	cache   cachestore.Cache
	limiter *rate.Limiter
	seen    *gocache.Cache // placeRef -> Outcome, for duplicates in one list
	report  *Report
	log     logger.Logger
}

func (e *Engine) newRun() *Run {
	start := e.opts.Now().UTC()
	id := uuid.NewString()

	limit := rate.Inf
	if e.opts.Delay > 0 {
		limit = rate.Every(e.opts.Delay)
	}

	return &Run{
		ID:        id,
		Start:     start,
		UpdatedAt: start.Format(timestampLayout),
		engine:    e,
		limiter:   rate.NewLimiter(limit, 1),
		// No expiration and no janitor goroutine: the cache lives for one run.
		seen:   gocache.New(gocache.NoExpiration, 0),
		report: &Report{RunID: id, StartedAt: start, DryRun: e.opts.DryRun},
		log:    e.log.With(logger.String("run_id", id)),
	}
}

// Reconcile processes locs in order and persists the cache once at the end.
// The report is returned even when err is non-nil.
func (e *Engine) Reconcile(ctx context.Context, locs []locations.Location) (*Report, error) {
	run := e.newRun()
	run.cache = e.cache.Load()

	run.log.Info("Reconciliation started",
		logger.Int("locations", len(locs)),
		logger.Int("cached_entries", len(run.cache)),
		logger.Bool("dry_run", e.opts.DryRun))

	for _, loc := range locs {
		outcome, err := run.reconcileLocation(ctx, loc)
		if err != nil {
			return run.finish(false), err
		}
		run.report.add(outcome)
		e.rec.RecordOutcome(outcome.String())
	}

	if err := ctx.Err(); err != nil {
		return run.finish(false), cancelled(err)
	}

	if e.opts.DryRun {
		run.log.Info("Dry run, cache not saved")
		return run.finish(true), nil
	}

	if err := e.cache.Save(run.cache); err != nil {
		run.log.Error("Failed to persist cache", logger.Error(err))
		return run.finish(false), err
	}
	return run.finish(true), nil
}

func (r *Run) finish(success bool) *Report {
	r.report.Duration = r.engine.opts.Now().UTC().Sub(r.Start)
	r.report.CacheEntries = len(r.cache)
	r.engine.rec.RecordRun(r.report.Duration.Seconds(), r.report.CacheEntries, success)

	if success {
		r.log.Info("Reconciliation finished",
			logger.Int("updated", r.report.Updated),
			logger.Int("preserved", r.report.Preserved),
			logger.Int("skipped", r.report.Skipped),
			logger.Int("photos_downloaded", r.report.PhotosDownloaded),
			logger.Int("degraded", len(r.report.Degraded)),
			logger.Duration("duration", r.report.Duration))
	}
	return r.report
}

// reconcileLocation returns an error only when the run must abort.
func (r *Run) reconcileLocation(ctx context.Context, loc locations.Location) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return 0, cancelled(err)
	}

	placeRef := strings.TrimSpace(loc.PlaceRef)
	if placeRef == "" {
		r.log.Debug("Location has no place reference, skipping",
			logger.String("location_id", loc.ID))
		return SkippedNoReference, nil
	}

	if prev, found := r.seen.Get(placeRef); found {
		r.report.Duplicates++
		r.log.Debug("Place reference already processed in this run",
			logger.String("place_id", placeRef),
			logger.String("location_id", loc.ID))
		return prev.(Outcome), nil
	}

	outcome, err := r.refreshEntry(ctx, loc, placeRef)
	if err != nil {
		return 0, err
	}
	r.seen.Set(placeRef, outcome, gocache.NoExpiration)
	return outcome, nil
}

func (r *Run) refreshEntry(ctx context.Context, loc locations.Location, placeRef string) (Outcome, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, cancelled(err)
	}

	md, err := r.engine.client.FetchMetadata(ctx, placeRef)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, cancelled(ctxErr)
		}
		r.degrade(placeRef, StageMetadata, err)
		r.log.Warn("Metadata unavailable, keeping cached entry",
			logger.String("place_id", placeRef),
			logger.Error(err))
		return PreservedUnchanged, nil
	}

	prior := r.cache[placeRef]
	entry := cachestore.Entry{
		PlaceID:             placeRef,
		Name:                firstNonEmpty(md.Name, loc.Name),
		Address:             firstNonEmpty(md.Address, loc.Address),
		WeekdayDescriptions: md.WeekdayDescriptions,
		PhotoPath:           prior.PhotoPath,
		UpdatedAt:           r.UpdatedAt,
	}
	if entry.WeekdayDescriptions == nil {
		entry.WeekdayDescriptions = []string{}
	}

	if md.PhotoRef != "" {
		photoPath, err := r.refreshPhoto(ctx, placeRef, md.PhotoRef, prior.PhotoPath)
		if err != nil {
			return 0, err
		}
		entry.PhotoPath = photoPath
	}

	r.cache[placeRef] = entry
	return Updated, nil
}

// refreshPhoto returns the photoPath to record. Failures keep priorPath;
// an error is returned only on cancellation.
func (r *Run) refreshPhoto(ctx context.Context, placeRef, photoRef, priorPath string) (string, error) {
	e := r.engine

	if e.photos.HasAsset(priorPath) {
		r.report.PhotosSkipped++
		return priorPath, nil
	}

	if e.opts.DryRun {
		r.log.Info("Dry run, photo not downloaded",
			logger.String("place_id", placeRef),
			logger.String("photo_ref", photoRef))
		return priorPath, nil
	}

	uri, err := e.client.ResolvePhotoURI(ctx, photoRef, e.opts.MaxWidthPx)
	if err != nil {
		return r.photoFailed(ctx, placeRef, StagePhotoURI, priorPath, err)
	}

	path, err := e.photos.Download(ctx, placeRef, uri)
	if err != nil {
		return r.photoFailed(ctx, placeRef, StageDownload, priorPath, err)
	}

	r.report.PhotosDownloaded++
	e.rec.RecordPhotoDownload()
	return path, nil
}

func (r *Run) photoFailed(ctx context.Context, placeRef, stage, priorPath string, err error) (string, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", cancelled(ctxErr)
	}

	r.degrade(placeRef, stage, err)
	r.report.PhotoFailures++
	r.engine.rec.RecordPhotoFailure(failureReason(err))
	r.log.Warn("Photo not refreshed, keeping previous photo",
		logger.String("place_id", placeRef),
		logger.String("stage", stage),
		logger.String("photo_path", priorPath),
		logger.Error(err))
	return priorPath, nil
}

func (r *Run) degrade(placeRef, stage string, err error) {
	r.report.Degraded = append(r.report.Degraded, Degraded{
		PlaceRef: placeRef,
		Stage:    stage,
		Reason:   errors.ScrubMessage(err.Error()),
	})
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrMissingPhotoURI):
		return metrics.ReasonMissingURI
	case errors.Is(err, errors.ErrUpstreamUnavailable):
		return metrics.ReasonUpstream
	case errors.Is(err, errors.ErrDownloadFailed):
		return metrics.ReasonDownload
	default:
		return metrics.ReasonOther
	}
}

func cancelled(err error) error {
	return errors.New(err).
		Component("reconcile").
		Category(errors.CategoryCancellation).
		Build()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
