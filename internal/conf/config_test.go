package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locali/placesync/internal/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	settings, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, ".", settings.Root)
	assert.Equal(t, "locali.json", settings.Locations)
	assert.Equal(t, "places_cache.json", settings.Cache)
	assert.Equal(t, "assets/place-photos", settings.PhotosDir)
	assert.Equal(t, DefaultBaseURL, settings.Places.BaseURL)
	assert.Equal(t, "it", settings.Places.Language)
	assert.Equal(t, "IT", settings.Places.Region)
	assert.Equal(t, 900, settings.Places.MaxWidthPx)
	assert.Equal(t, 150*time.Millisecond, settings.Sync.Delay)
	assert.False(t, settings.Sync.DryRun)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	path := writeConfig(t, `
root: /srv/site
cache: data/cache.json
places:
  language: en
  maxwidthpx: 1200
sync:
  delay: 1s
notify:
  urls:
    - "generic://example.com/hook"
`)

	settings, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/site", settings.Root)
	assert.Equal(t, filepath.Join("/srv/site", "data/cache.json"), settings.CachePath())
	assert.Equal(t, filepath.Join("/srv/site", "locali.json"), settings.LocationsPath())
	assert.Equal(t, "en", settings.Places.Language)
	assert.Equal(t, 1200, settings.Places.MaxWidthPx)
	assert.Equal(t, time.Second, settings.Sync.Delay)
	assert.Equal(t, []string{"generic://example.com/hook"}, settings.Notify.URLs)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv(EnvAPIKey, "")

	path := writeConfig(t, `
places:
  language: "not a language!"
  maxwidthpx: 0
`)

	_, err := Load(viper.New(), path)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	assert.Contains(t, err.Error(), "invalid language code")
}

func TestRequireAPIKey(t *testing.T) {
	t.Parallel()

	s := &Settings{}
	err := s.RequireAPIKey()
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvAPIKey)

	s.Places.APIKey = "k"
	assert.NoError(t, s.RequireAPIKey())
}

func TestResolvePath(t *testing.T) {
	t.Parallel()

	s := &Settings{Root: "site"}
	assert.Equal(t, filepath.Join("site", "assets"), s.ResolvePath("assets"))
	assert.Equal(t, "/abs/cache.json", s.ResolvePath("/abs/cache.json"))
	assert.Empty(t, s.ResolvePath(""))
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	valid := func() *Settings {
		return &Settings{
			Locations: "locali.json",
			Cache:     "places_cache.json",
			PhotosDir: "assets/place-photos",
			Places: PlacesSettings{
				BaseURL:    DefaultBaseURL,
				Language:   "it",
				Region:     "IT",
				MaxWidthPx: 900,
				Timeout:    time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"empty cache", func(s *Settings) { s.Cache = "" }, "cache path"},
		{"empty photos dir", func(s *Settings) { s.PhotosDir = "" }, "photos directory"},
		{"bad region", func(s *Settings) { s.Places.Region = "ZZZZ" }, "invalid region code"},
		{"bad base url", func(s *Settings) { s.Places.BaseURL = "ftp://x" }, "base URL"},
		{"width too large", func(s *Settings) { s.Places.MaxWidthPx = 10000 }, "max photo width"},
		{"negative delay", func(s *Settings) { s.Sync.Delay = -time.Second }, "sync delay"},
		{"zero timeout", func(s *Settings) { s.Places.Timeout = 0 }, "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := valid()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
