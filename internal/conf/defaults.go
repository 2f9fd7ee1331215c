// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/locali/placesync/internal/logger"
)

const (
	DefaultBaseURL    = "https://places.googleapis.com"
	DefaultLanguage   = "it"
	DefaultRegion     = "IT"
	DefaultMaxWidthPx = 900
	DefaultDelay      = 150 * time.Millisecond
	DefaultListen     = ":8888"
)

// setDefaultConfig sets default values for each configuration parameter.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	v.SetDefault("root", ".")
	v.SetDefault("locations", "locali.json")
	v.SetDefault("cache", "places_cache.json")
	v.SetDefault("photosdir", "assets/place-photos")

	v.SetDefault("places.apikey", "")
	v.SetDefault("places.baseurl", DefaultBaseURL)
	v.SetDefault("places.language", DefaultLanguage)
	v.SetDefault("places.region", DefaultRegion)
	v.SetDefault("places.maxwidthpx", DefaultMaxWidthPx)
	v.SetDefault("places.timeout", 30*time.Second)

	v.SetDefault("sync.delay", DefaultDelay)
	v.SetDefault("sync.dryrun", false)

	v.SetDefault("serve.listen", DefaultListen)
	v.SetDefault("serve.shutdowntimeout", 10*time.Second)

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.max_size", logger.DefaultMaxSize)
	v.SetDefault("logging.file_output.max_age", logger.DefaultMaxAge)
	v.SetDefault("logging.file_output.max_rotated_files", logger.DefaultMaxRotatedFiles)
	v.SetDefault("logging.file_output.compress", false)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	v.SetDefault("metrics.textfilepath", "")

	v.SetDefault("notify.urls", []string{})
	v.SetDefault("notify.always", false)
	v.SetDefault("notify.timeout", 10*time.Second)

	v.SetDefault("telemetry.sentrydsn", "")
	v.SetDefault("telemetry.environment", "production")
}
