// Package sync implements the reconciliation command.
package sync

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/locali/placesync/internal/app"
	"github.com/locali/placesync/internal/cachestore"
	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/httpclient"
	"github.com/locali/placesync/internal/locations"
	"github.com/locali/placesync/internal/logger"
	"github.com/locali/placesync/internal/notification"
	"github.com/locali/placesync/internal/observability"
	"github.com/locali/placesync/internal/photostore"
	"github.com/locali/placesync/internal/places"
	"github.com/locali/placesync/internal/reconcile"
	"github.com/locali/placesync/internal/securefs"
)

// Command creates the sync command.
func Command(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Refresh the place cache and photos",
		Long: "Reads the location list, refreshes cached metadata for every location with a place " +
			"reference and downloads missing photos. Locations whose lookup fails keep their " +
			"previous cache entry.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer func() { _ = a.Close() }()
			return Run(cmd.Context(), a)
		},
	}

	cobra.CheckErr(setupFlags(cmd, a))
	return cmd
}

func setupFlags(cmd *cobra.Command, a *app.App) error {
	f := cmd.Flags()
	f.String("root", "", "Site root; relative paths are resolved against it")
	f.String("locations", "", "Location list (JSON or YAML)")
	f.String("cache", "", "Cache document to update")
	f.String("photos-dir", "", "Photo directory, relative to the site root")
	f.Duration("delay", 0, "Minimum pause between locations that contact the provider")
	f.Int("max-width", 0, "Maximum photo width in pixels")
	f.String("language", "", "Language code for place details")
	f.Bool("dry-run", false, "Fetch metadata and report, but download nothing and leave the cache untouched")

	return a.BindFlags(f, map[string]string{
		"root":       "root",
		"locations":  "locations",
		"cache":      "cache",
		"photos-dir": "photosdir",
		"delay":      "sync.delay",
		"max-width":  "places.maxwidthpx",
		"language":   "places.language",
		"dry-run":    "sync.dryrun",
	})
}

// Run performs one reconciliation with the loaded settings. The returned
// error is fatal; degraded locations are only reported.
func Run(ctx context.Context, a *app.App) error {
	settings := a.Settings
	log := a.Logger("sync")

	if err := settings.RequireAPIKey(); err != nil {
		log.Error("Cannot start reconciliation", logger.Error(err))
		errors.Report(err)
		return err
	}

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	hc := httpclient.New(&httpclient.Config{DefaultTimeout: settings.Places.Timeout})
	defer hc.Close()
	m.InstrumentClient(hc)

	report, runErr := reconcileOnce(ctx, a, hc, m)

	if path := settings.Metrics.TextfilePath; path != "" {
		if err := m.WriteTextfile(settings.ResolvePath(path)); err != nil {
			log.Warn("Failed to export metrics", logger.Error(err))
		}
	}

	notifier, err := notification.New(notification.Config{
		URLs:    settings.Notify.URLs,
		Always:  settings.Notify.Always,
		Timeout: settings.Notify.Timeout,
	}, log)
	if err != nil {
		log.Warn("Notifications disabled", logger.Error(err))
	} else if err := notifier.NotifyRun(report, runErr); err != nil {
		log.Warn("Run summary not delivered", logger.Error(err))
	}

	if runErr != nil {
		errors.Report(runErr)
		return runErr
	}

	log.Info(report.Summary())
	return nil
}

func reconcileOnce(ctx context.Context, a *app.App, hc *httpclient.Client, m *observability.Metrics) (*reconcile.Report, error) {
	settings := a.Settings
	log := a.Logger("sync")

	locs, err := locations.Read(settings.LocationsPath())
	if err != nil {
		return nil, err
	}

	client, err := places.NewClient(places.Config{
		APIKey:   settings.Places.APIKey,
		BaseURL:  settings.Places.BaseURL,
		Language: settings.Places.Language,
	}, hc, a.Logger("places"))
	if err != nil {
		return nil, err
	}

	sfs, err := securefs.New(settings.Root, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := sfs.Close(); err != nil {
			log.Debug("Failed to close site root", logger.Error(err))
		}
	}()

	photos, err := photostore.New(sfs, settings.PhotosDir, hc, a.Logger("photostore"))
	if err != nil {
		return nil, err
	}
	if !settings.Sync.DryRun {
		if err := photos.EnsureDir(); err != nil {
			return nil, err
		}
	}

	cache, err := cachestore.New(settings.CachePath(), a.Logger("cachestore"))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Debug("Failed to close cache directory", logger.Error(err))
		}
	}()

	engine := reconcile.New(client, photos, cache, reconcile.Options{
		Delay:      settings.Sync.Delay,
		MaxWidthPx: settings.Places.MaxWidthPx,
		DryRun:     settings.Sync.DryRun,
	}, m.Sync, a.Logger("reconcile"))

	return engine.Reconcile(ctx, locs)
}
