// Package telemetry wires opt-in Sentry error reporting. Nothing is sent
// unless a DSN is configured.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/locali/placesync/internal/errors"
	"github.com/locali/placesync/internal/logger"
)

// DefaultFlushTimeout bounds how long a short-lived command waits for
// queued events on exit.
const DefaultFlushTimeout = 2 * time.Second

// Config configures Sentry.
type Config struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool

	// Transport replaces the HTTP transport, for tests.
	Transport sentry.Transport
}

// Init initializes the Sentry SDK and routes enhanced errors to it. It
// reports whether reporting was enabled.
func Init(cfg Config, log logger.Logger) (bool, error) {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	log = log.Module("telemetry")

	if cfg.DSN == "" {
		log.Debug("Error reporting disabled, no DSN configured")
		errors.SetTelemetryReporter(nil)
		return false, nil
	}

	if cfg.Environment == "" {
		cfg.Environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		SampleRate:       1.0,
		Debug:            cfg.Debug,
		AttachStacktrace: false,
		Environment:      cfg.Environment,
		ServerName:       "",
		Release:          release(cfg.Release),
		Transport:        cfg.Transport,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return false, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	log.Info("Error reporting enabled", logger.String("environment", cfg.Environment))
	return true, nil
}

// Flush waits up to timeout for queued events to be delivered.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

func release(version string) string {
	if version == "" {
		version = "dev"
	}
	return "placesync@" + version
}

// applyPrivacyFilters strips host and user identifying data from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	event.Message = errors.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = errors.ScrubMessage(event.Exception[i].Value)
	}
	return event
}
