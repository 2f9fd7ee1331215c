package proxy

import (
	"fmt"
	"io"
	"sync/atomic"

	"github.com/labstack/echo/v4"
	gommonlog "github.com/labstack/gommon/log"

	"github.com/locali/placesync/internal/logger"
)

// echoLogger routes echo's internal messages (startup failures, recovered
// panics) into the module logger.
type echoLogger struct {
	log   logger.Logger
	level atomic.Uint32
}

var _ echo.Logger = (*echoLogger)(nil)

func newEchoLogger(log logger.Logger) *echoLogger {
	l := &echoLogger{log: log}
	l.level.Store(uint32(gommonlog.INFO))
	return l
}

func (l *echoLogger) enabled(lvl gommonlog.Lvl) bool {
	return lvl >= gommonlog.Lvl(l.level.Load())
}

func (l *echoLogger) emit(lvl gommonlog.Lvl, msg string, fields ...logger.Field) {
	if !l.enabled(lvl) {
		return
	}
	switch lvl {
	case gommonlog.DEBUG:
		l.log.Debug(msg, fields...)
	case gommonlog.WARN:
		l.log.Warn(msg, fields...)
	case gommonlog.ERROR:
		l.log.Error(msg, fields...)
	default:
		l.log.Info(msg, fields...)
	}
}

func (l *echoLogger) Output() io.Writer { return io.Discard }
func (l *echoLogger) SetOutput(io.Writer) {}
func (l *echoLogger) Prefix() string { return "" }
func (l *echoLogger) SetPrefix(string) {}
func (l *echoLogger) SetHeader(string) {}
func (l *echoLogger) Level() gommonlog.Lvl { return gommonlog.Lvl(l.level.Load()) }
func (l *echoLogger) SetLevel(v gommonlog.Lvl) { l.level.Store(uint32(v)) }
func (l *echoLogger) Print(i ...any) { l.emit(gommonlog.INFO, fmt.Sprint(i...)) }
func (l *echoLogger) Printf(f string, args ...any) { l.emit(gommonlog.INFO, fmt.Sprintf(f, args...)) }
func (l *echoLogger) Printj(j gommonlog.JSON) { l.emit(gommonlog.INFO, "echo", logger.Any("data", j)) }
func (l *echoLogger) Debug(i ...any) { l.emit(gommonlog.DEBUG, fmt.Sprint(i...)) }
func (l *echoLogger) Debugf(f string, args ...any) { l.emit(gommonlog.DEBUG, fmt.Sprintf(f, args...)) }
func (l *echoLogger) Debugj(j gommonlog.JSON) { l.emit(gommonlog.DEBUG, "echo", logger.Any("data", j)) }
func (l *echoLogger) Info(i ...any) { l.emit(gommonlog.INFO, fmt.Sprint(i...)) }
func (l *echoLogger) Infof(f string, args ...any) { l.emit(gommonlog.INFO, fmt.Sprintf(f, args...)) }
func (l *echoLogger) Infoj(j gommonlog.JSON) { l.emit(gommonlog.INFO, "echo", logger.Any("data", j)) }
func (l *echoLogger) Warn(i ...any) { l.emit(gommonlog.WARN, fmt.Sprint(i...)) }
func (l *echoLogger) Warnf(f string, args ...any) { l.emit(gommonlog.WARN, fmt.Sprintf(f, args...)) }
func (l *echoLogger) Warnj(j gommonlog.JSON) { l.emit(gommonlog.WARN, "echo", logger.Any("data", j)) }
func (l *echoLogger) Error(i ...any) { l.emit(gommonlog.ERROR, fmt.Sprint(i...)) }
func (l *echoLogger) Errorf(f string, args ...any) { l.emit(gommonlog.ERROR, fmt.Sprintf(f, args...)) }
func (l *echoLogger) Errorj(j gommonlog.JSON) { l.emit(gommonlog.ERROR, "echo", logger.Any("data", j)) }

// Fatal panics rather than exiting; the proxy stops through its context.
func (l *echoLogger) Fatal(i ...any) { l.Panic(i...) }
func (l *echoLogger) Fatalf(f string, args ...any) { l.Panicf(f, args...) }
func (l *echoLogger) Fatalj(j gommonlog.JSON) { l.Panicj(j) }

func (l *echoLogger) Panic(i ...any) {
	msg := fmt.Sprint(i...)
	l.log.Error(msg)
	panic(msg)
}

func (l *echoLogger) Panicf(f string, args ...any) {
	msg := fmt.Sprintf(f, args...)
	l.log.Error(msg)
	panic(msg)
}

func (l *echoLogger) Panicj(j gommonlog.JSON) {
	l.log.Error("echo", logger.Any("data", j))
	panic(fmt.Sprint(j))
}
