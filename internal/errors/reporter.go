package errors

import (
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives fatal errors from Report.
type TelemetryReporter interface {
	ReportError(ee *EnhancedError)
	IsEnabled() bool
}

var (
	reporterMu      sync.RWMutex
	reporter        TelemetryReporter
	reportingActive atomic.Bool
)

// SetTelemetryReporter installs r as the process-wide reporter. nil turns
// reporting off.
func SetTelemetryReporter(r TelemetryReporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
	reportingActive.Store(r != nil && r.IsEnabled())
}

func reportToTelemetry(ee *EnhancedError) {
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()

	if r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

// SentryReporter forwards errors to the current sentry hub. Messages and
// string context values are scrubbed first.
type SentryReporter struct {
	enabled bool
}

func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool { return sr.enabled }

func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled {
		return
	}

	title := eventTitle(ee)
	message := ScrubMessage("[" + string(ee.Category) + "] " + ee.Err.Error())
	level := levelFor(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", string(ee.Category))
		scope.SetLevel(level)
		scope.SetFingerprint([]string{ee.Component, string(ee.Category), title})

		for k, v := range ee.context {
			if s, ok := v.(string); ok {
				v = ScrubMessage(s)
			}
			scope.SetContext(k, sentry.Context{"value": v})
		}

		event := sentry.NewEvent()
		event.Level = level
		event.Message = message
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})
}

// eventTitle groups events as "<Component> <category> [<operation>]", for
// example "Places http-request details".
func eventTitle(ee *EnhancedError) string {
	parts := make([]string, 0, 3)
	if ee.Component != ComponentUnknown {
		parts = append(parts, capitalize(ee.Component))
	}
	parts = append(parts, string(ee.Category))
	if op, ok := ee.context["operation"].(string); ok && op != "" {
		parts = append(parts, op)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// levelFor maps transient categories below error level.
func levelFor(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryNetwork, CategoryHTTP, CategoryImageFetch:
		return sentry.LevelWarning
	case CategoryCancellation:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}

var (
	queryString = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	secretLike  = []*regexp.Regexp{
		regexp.MustCompile(`(?i)x-goog-api-key[=:]\s*\S+`),
		regexp.MustCompile(`(?i)api[_-]?key[=:]\s*\S+`),
		regexp.MustCompile(`AIza[0-9A-Za-z_\-]{20,}`),
		regexp.MustCompile(`(?i)token[=:]\S+`),
	}
)

// ScrubMessage strips query strings and anything shaped like an API key.
func ScrubMessage(message string) string {
	out := queryString.ReplaceAllString(message, "$1?[REDACTED]")
	for _, re := range secretLike {
		out = re.ReplaceAllString(out, "[API_KEY_REDACTED]")
	}
	return out
}
