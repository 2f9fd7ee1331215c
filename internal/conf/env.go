// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/locali/placesync/internal/errors"
)

// EnvAPIKey is the environment variable carrying the provider credential.
const EnvAPIKey = "PLACES_API_KEY"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"places.apikey", EnvAPIKey, nil},
		{"places.baseurl", "PLACESYNC_BASE_URL", validateEnvURL},
		{"places.language", "PLACESYNC_LANGUAGE", validateLanguageTag},
		{"places.region", "PLACESYNC_REGION", validateRegionCode},
		{"places.maxwidthpx", "PLACESYNC_MAX_WIDTH", validateEnvMaxWidth},

		{"root", "PLACESYNC_ROOT", nil},
		{"locations", "PLACESYNC_LOCATIONS", nil},
		{"cache", "PLACESYNC_CACHE", nil},
		{"photosdir", "PLACESYNC_PHOTOS_DIR", nil},

		{"sync.delay", "PLACESYNC_DELAY", validateEnvDuration},
		{"debug", "PLACESYNC_DEBUG", validateEnvBool},

		{"serve.listen", "PLACESYNC_LISTEN", nil},
		{"metrics.textfilepath", "PLACESYNC_METRICS_FILE", nil},
		{"notify.urls", "PLACESYNC_NOTIFY_URLS", nil},
		{"notify.always", "PLACESYNC_NOTIFY_ALWAYS", validateEnvBool},
		{"telemetry.sentrydsn", "PLACESYNC_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return errors.Newf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - ")).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must not be negative, got %s", d)
	}
	return nil
}

func validateEnvMaxWidth(value string) error {
	width, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid width: %w", err)
	}
	return validateMaxWidth(width)
}

func validateEnvURL(value string) error {
	if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
		return fmt.Errorf("must start with http:// or https://")
	}
	return nil
}
