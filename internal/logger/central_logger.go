package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// CentralLogger owns the process-wide handlers and hands out module loggers.
type CentralLogger struct {
	mu           sync.RWMutex
	handler      slog.Handler
	rotator      *lumberjack.Logger
	defaultLevel slog.Level
	moduleLevels map[string]slog.Level
}

// NewCentralLogger builds the console and rotating-file handlers described
// by cfg. Missing sections are filled with defaults.
func NewCentralLogger(cfg *LoggingConfig) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	cl := &CentralLogger{
		defaultLevel: levelOf(LogLevel(cfg.DefaultLevel)),
		moduleLevels: make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for module, lvl := range cfg.ModuleLevels {
		cl.moduleLevels[module] = levelOf(LogLevel(lvl))
	}

	var handlers []slog.Handler
	if cfg.Console.Enabled {
		handlers = append(handlers, consoleHandler(os.Stdout, levelOf(LogLevel(cfg.Console.Level))))
	}
	if fo := cfg.FileOutput; fo != nil && fo.Enabled {
		h, err := cl.openFile(fo)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, h)
	}

	switch len(handlers) {
	case 0:
		cl.handler = slog.DiscardHandler
	case 1:
		cl.handler = handlers[0]
	default:
		cl.handler = newMultiWriterHandler(handlers...)
	}
	return cl, nil
}

// openFile attaches a lumberjack writer with a JSON handler on top.
func (cl *CentralLogger) openFile(fo *FileOutput) (slog.Handler, error) {
	if dir := filepath.Dir(fo.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	cl.rotator = &lumberjack.Logger{
		Filename:   fo.Path,
		MaxSize:    fo.MaxSize,
		MaxAge:     fo.MaxAge,
		MaxBackups: fo.MaxRotatedFiles,
		Compress:   fo.Compress,
	}
	return slog.NewJSONHandler(cl.rotator, &slog.HandlerOptions{
		Level:       levelOf(LogLevel(fo.Level)),
		ReplaceAttr: redactAttr,
	}), nil
}

// Module returns a logger tagged with module=name. Its level comes from
// ModuleLevels when set there, otherwise from DefaultLevel.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return NewDiscardLogger()
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	lvl, ok := cl.moduleLevels[name]
	if !ok {
		lvl = cl.defaultLevel
	}
	return &moduleLogger{module: name, out: slog.New(cl.handler), min: lvl}
}

// Close closes the rotating file, if one was opened.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.rotator == nil {
		return nil
	}
	err := cl.rotator.Close()
	cl.rotator = nil
	return err
}

// NewSlogLogger returns a Logger writing console-style text to w.
func NewSlogLogger(w io.Writer, level LogLevel) Logger {
	lvl := levelOf(level)
	return &moduleLogger{out: slog.New(consoleHandler(w, lvl)), min: lvl}
}

// NewDiscardLogger returns a Logger that drops everything.
func NewDiscardLogger() Logger {
	return &moduleLogger{out: slog.New(slog.DiscardHandler), min: slog.LevelError + 1}
}

// consoleHandler writes key=value text without timestamps.
func consoleHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return redactAttr(groups, a)
		},
	})
}

func levelOf(level LogLevel) slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type moduleLogger struct {
	module string
	out    *slog.Logger
	min    slog.Level
	fields []Field
}

func (m *moduleLogger) Module(name string) Logger {
	child := *m
	child.module = name
	if m.module != "" {
		child.module = m.module + "." + name
	}
	child.fields = slices.Clone(m.fields)
	return &child
}

func (m *moduleLogger) With(fields ...Field) Logger {
	child := *m
	child.fields = slices.Concat(m.fields, fields)
	return &child
}

func (m *moduleLogger) Debug(msg string, fields ...Field) { m.emit(slog.LevelDebug, msg, fields) }
func (m *moduleLogger) Info(msg string, fields ...Field) { m.emit(slog.LevelInfo, msg, fields) }
func (m *moduleLogger) Warn(msg string, fields ...Field) { m.emit(slog.LevelWarn, msg, fields) }
func (m *moduleLogger) Error(msg string, fields ...Field) { m.emit(slog.LevelError, msg, fields) }

func (m *moduleLogger) emit(level slog.Level, msg string, fields []Field) {
	if level < m.min {
		return
	}
	attrs := make([]slog.Attr, 0, 1+len(m.fields)+len(fields))
	if m.module != "" {
		attrs = append(attrs, slog.String(moduleKey, m.module))
	}
	for _, f := range m.fields {
		attrs = append(attrs, f.attr())
	}
	for _, f := range fields {
		attrs = append(attrs, f.attr())
	}
	m.out.LogAttrs(context.Background(), level, msg, attrs...)
}

func (f Field) attr() slog.Attr {
	switch v := f.Value.(type) {
	case string:
		return slog.String(f.Key, v)
	case int:
		return slog.Int(f.Key, v)
	case int64:
		return slog.Int64(f.Key, v)
	case float64:
		return slog.Float64(f.Key, math.Round(v*1000)/1000)
	case bool:
		return slog.Bool(f.Key, v)
	case time.Duration:
		return slog.String(f.Key, v.Round(time.Millisecond).String())
	case time.Time:
		return slog.Time(f.Key, v)
	default:
		return slog.Any(f.Key, v)
	}
}
