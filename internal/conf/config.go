// Package conf loads placesync settings from defaults, an optional YAML
// file, environment variables and command-line flags, in increasing order
// of precedence.
package conf

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/logger"
)

// Settings contains all configuration options for placesync.
type Settings struct {
	Debug bool // enable debug logging

	Root      string // site root; relative paths below are resolved against it
	Locations string // location list, JSON or YAML
	Cache     string // persisted cache document
	PhotosDir string // directory holding downloaded photos

	Places    PlacesSettings
	Sync      SyncSettings
	Serve     ServeSettings
	Logging   logger.LoggingConfig
	Metrics   MetricsSettings
	Notify    NotifySettings
	Telemetry TelemetrySettings
}

// PlacesSettings configures the upstream place provider.
type PlacesSettings struct {
	APIKey     string        // provider credential, usually from PLACES_API_KEY
	BaseURL    string        // provider endpoint root
	Language   string        // languageCode sent with detail requests
	Region     string        // default regionCode for the proxy
	MaxWidthPx int           // photo width hint
	Timeout    time.Duration // per-request timeout
}

// SyncSettings configures a reconciliation run.
type SyncSettings struct {
	Delay  time.Duration // pause between locations that contact upstream
	DryRun bool          // reconcile without downloading photos or saving the cache
}

// ServeSettings configures the proxy server.
type ServeSettings struct {
	Listen          string
	ShutdownTimeout time.Duration
}

// MetricsSettings configures the optional Prometheus textfile export.
type MetricsSettings struct {
	TextfilePath string // node-exporter textfile; empty disables the export
}

// NotifySettings configures the run summary notification.
type NotifySettings struct {
	URLs    []string      // shoutrrr service URLs
	Always  bool          // also notify on clean runs
	Timeout time.Duration // per-send timeout
}

// TelemetrySettings configures optional Sentry error reporting.
type TelemetrySettings struct {
	SentryDSN   string
	Environment string
}

// Load reads settings into a fresh Settings value. configFile may be empty,
// in which case config.yaml is looked up in the working directory and in
// $HOME/.config/placesync; a missing default file is not an error.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// readConfigFile reads an explicit config file, or the default one if present.
func readConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/placesync")
	}

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if configFile == "" && errors.As(err, &notFound) {
		return nil
	}

	return errors.New(fmt.Errorf("error reading config file: %w", err)).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Context("config_file", configFile).
		Build()
}

// RequireAPIKey returns a configuration error when the provider credential
// is absent. Callers treat it as fatal before any network call is made.
func (s *Settings) RequireAPIKey() error {
	if s.Places.APIKey != "" {
		return nil
	}
	return errors.Newf("missing %s: the places API key is required", EnvAPIKey).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Build()
}

// ResolvePath resolves p against the site root unless it is absolute.
func (s *Settings) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Root, p)
}

// LocationsPath returns the resolved location list path.
func (s *Settings) LocationsPath() string { return s.ResolvePath(s.Locations) }

// CachePath returns the resolved cache document path.
func (s *Settings) CachePath() string { return s.ResolvePath(s.Cache) }
