// Package serve implements the proxy command.
package serve

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/locali/placesync/internal/app"
	"github.com/locali/placesync/internal/httpclient"
	"github.com/locali/placesync/internal/logger"
	"github.com/locali/placesync/internal/observability"
	"github.com/locali/placesync/internal/places"
	"github.com/locali/placesync/internal/proxy"
)

// Command creates the serve command.
func Command(a *app.App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the place details and photo URI endpoints",
		Long: "Starts an HTTP server exposing /api/place-details and /api/place-photo-uri so " +
			"browsers can query the Places API without seeing the key.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer func() { _ = a.Close() }()
			return Run(cmd.Context(), a)
		},
	}

	cmd.Flags().String("listen", "", "Listen address, e.g. :8888")
	cobra.CheckErr(a.BindFlags(cmd.Flags(), map[string]string{"listen": "serve.listen"}))
	return cmd
}

// Run serves until ctx is cancelled.
func Run(ctx context.Context, a *app.App) error {
	settings := a.Settings
	log := a.Logger("serve")

	m, err := observability.NewMetrics()
	if err != nil {
		return err
	}
	if err := m.EnableRuntimeCollectors(); err != nil {
		return err
	}

	hc := httpclient.New(&httpclient.Config{DefaultTimeout: settings.Places.Timeout})
	defer hc.Close()
	m.InstrumentClient(hc)

	backend, err := newBackend(a, hc)
	if err != nil {
		return err
	}

	srv := proxy.New(proxy.Config{
		Language:        settings.Places.Language,
		Region:          settings.Places.Region,
		MaxWidthPx:      settings.Places.MaxWidthPx,
		ShutdownTimeout: settings.Serve.ShutdownTimeout,
	}, backend, m, a.Logger("proxy"))

	log.Info("Starting proxy", logger.String("listen", settings.Serve.Listen))
	return srv.ListenAndServe(ctx, settings.Serve.Listen)
}

// newBackend returns a nil Backend when no key is configured: the proxy
// still starts and answers with a configuration error.
func newBackend(a *app.App, hc *httpclient.Client) (proxy.Backend, error) {
	settings := a.Settings
	if settings.RequireAPIKey() != nil {
		a.Logger("serve").Warn("No places API key configured, proxied requests will fail")
		return nil, nil
	}

	client, err := places.NewClient(places.Config{
		APIKey:   settings.Places.APIKey,
		BaseURL:  settings.Places.BaseURL,
		Language: settings.Places.Language,
	}, hc, a.Logger("places"))
	if err != nil {
		return nil, err
	}
	return client, nil
}
