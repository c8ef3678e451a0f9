// Package logging provides a small leveled logging abstraction for checklog.
// Diagnostics go to stderr so they never pollute the status line the
// monitoring supervisor parses from stdout.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
)

// Level represents a log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the interface for leveled logging.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// WithField returns a new logger with the given field attached to
	// every line it emits.
	WithField(key string, value interface{}) Logger

	// SetLevel sets the minimum log level.
	SetLevel(level Level)
}

var (
	defaultLogger Logger = New()
	defaultMu     sync.RWMutex
)

// Default returns the package-level default logger.
func Default() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the package-level default logger.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }

// Info logs an info message using the default logger.
func Info(msg string, args ...interface{}) { Default().Info(msg, args...) }

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...interface{}) { Default().Warn(msg, args...) }

// Error logs an error message using the default logger.
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }

// textLogger implements Logger on top of the standard library log package.
type textLogger struct {
	logger *log.Logger
	level  Level
	fields map[string]interface{}
	mu     sync.RWMutex
}

// New creates a logger writing to stderr at Info level.
func New() Logger {
	return NewWithOutput(os.Stderr)
}

// NewWithOutput creates a logger writing to w at Info level.
func NewWithOutput(w io.Writer) Logger {
	return &textLogger{
		logger: log.New(w, "", log.LstdFlags),
		level:  LevelInfo,
		fields: make(map[string]interface{}),
	}
}

func (l *textLogger) log(level Level, msg string, args ...interface{}) {
	l.mu.RLock()
	enabled := level >= l.level
	fields := l.fields
	l.mu.RUnlock()
	if !enabled {
		return
	}

	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
		}
		l.logger.Printf("[%s] %s [%s]", level, msg, strings.Join(parts, " "))
		return
	}
	l.logger.Printf("[%s] %s", level, msg)
}

func (l *textLogger) Debug(msg string, args ...interface{}) { l.log(LevelDebug, msg, args...) }
func (l *textLogger) Info(msg string, args ...interface{})  { l.log(LevelInfo, msg, args...) }
func (l *textLogger) Warn(msg string, args ...interface{})  { l.log(LevelWarn, msg, args...) }
func (l *textLogger) Error(msg string, args ...interface{}) { l.log(LevelError, msg, args...) }

func (l *textLogger) WithField(key string, value interface{}) Logger {
	l.mu.RLock()
	fields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		fields[k] = v
	}
	level := l.level
	l.mu.RUnlock()

	fields[key] = value
	return &textLogger{logger: l.logger, level: level, fields: fields}
}

func (l *textLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// NopLogger discards all output. Useful in tests.
type NopLogger struct{}

func (NopLogger) Debug(msg string, args ...interface{})            {}
func (NopLogger) Info(msg string, args ...interface{})             {}
func (NopLogger) Warn(msg string, args ...interface{})             {}
func (NopLogger) Error(msg string, args ...interface{})            {}
func (n NopLogger) WithField(key string, value interface{}) Logger { return n }
func (NopLogger) SetLevel(level Level)                             {}
