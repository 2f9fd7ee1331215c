// Package logger is placesync's structured logging layer on top of log/slog.
//
// A CentralLogger is built once from configuration and hands out loggers
// scoped to a module:
//
//	central, err := logger.NewCentralLogger(&settings.Logging)
//	if err != nil {
//	    return err
//	}
//	defer central.Close()
//
//	log := central.Module("reconcile").With(logger.String("run_id", id))
//	log.Info("Reconciliation started", logger.Int("locations", len(locs)))
//
// Nested modules are joined with a dot ("places.media"). Console output is
// text without timestamps, since cron and CI add their own. File output is
// JSON rotated by lumberjack. Values that look like credentials are
// redacted in both.
//
// Tests use NewSlogLogger over a buffer, or NewDiscardLogger.
package logger

import (
	"time"
	"unique"
)

// LogLevel names a severity in configuration.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field is one structured key/value pair.
type Field struct {
	Key   string
	Value any
}

// Keys repeat on every line, so they are interned.
func key(k string) string { return unique.Make(k).Value() }

var (
	errorKey  = key("error")
	moduleKey = key("module")
)

// Logger is what every component receives.
type Logger interface {
	Module(name string) Logger
	With(fields ...Field) Logger

	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

func String(k, v string) Field { return Field{Key: key(k), Value: v} }
func Int(k string, v int) Field { return Field{Key: key(k), Value: v} }
func Int64(k string, v int64) Field { return Field{Key: key(k), Value: v} }
func Float64(k string, v float64) Field { return Field{Key: key(k), Value: v} }
func Bool(k string, v bool) Field { return Field{Key: key(k), Value: v} }
func Time(k string, v time.Time) Field { return Field{Key: key(k), Value: v} }
func Any(k string, v any) Field { return Field{Key: key(k), Value: v} }

// Duration renders as "1.5s", rounded to the millisecond.
func Duration(k string, v time.Duration) Field { return Field{Key: key(k), Value: v} }

// Error always uses the key "error". A nil error logs a nil value.
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey}
	}
	return Field{Key: errorKey, Value: err.Error()}
}
