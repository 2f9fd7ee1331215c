package logger

import (
	"log/slog"
	"regexp"
	"strings"
)

// SensitiveDataPatterns contains regex patterns for sensitive data that should be redacted in logs
var SensitiveDataPatterns = []*regexp.Regexp{
	// Google API keys
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{20,}`),

	// key=... in query strings
	regexp.MustCompile(`(?i)([?&](key|api_?key|token)=)([^&\s]+)`),

	// Auth tokens (Bearer)
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
}

// SensitiveKeywords are keywords that indicate fields may contain sensitive data
var SensitiveKeywords = []string{
	"password", "secret", "credential", "token", "api_key", "apikey", "authorization", "dsn",
}

// RedactSensitiveData replaces sensitive information with "[REDACTED]"
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for i, pattern := range SensitiveDataPatterns {
		if i == 0 {
			input = pattern.ReplaceAllString(input, "[REDACTED]")
			continue
		}
		input = pattern.ReplaceAllString(input, "${1}[REDACTED]")
	}
	return input
}

// isSensitiveKey reports whether a field key names secret material
func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, sensitiveKey := range SensitiveKeywords {
		if strings.Contains(keyLower, sensitiveKey) {
			return true
		}
	}
	return false
}

// redactAttr is a slog ReplaceAttr hook that masks sensitive string values.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if isSensitiveKey(a.Key) && a.Value.String() != "" {
		return slog.String(a.Key, "[REDACTED]")
	}
	if a.Key == slog.MessageKey {
		return a
	}
	return slog.String(a.Key, RedactSensitiveData(a.Value.String()))
}
