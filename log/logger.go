// Package log provides the logging abstraction used across memflow.
//
// Components log through the package-level default logger so that callers
// can swap in their own implementation (or silence logging entirely)
// without threading logger objects through every constructor.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

// Level represents logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelNone disables all logging.
	LevelNone
)

// String returns the textual form of the level.
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
	case LevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// Logger is the minimal printf-style logging interface memflow components
// write to.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// StdLogger implements Logger on top of the standard library log package.
type StdLogger struct {
	logger *log.Logger
	level  Level
}

// NewStdLogger creates a logger writing to stderr at the given level.
func NewStdLogger(level Level) *StdLogger {
	return NewStdLoggerTo(os.Stderr, level)
}

// NewStdLoggerTo creates a logger writing to out at the given level.
func NewStdLoggerTo(out io.Writer, level Level) *StdLogger {
	return &StdLogger{
		logger: log.New(out, "[memflow] ", log.LstdFlags),
		level:  level,
	}
}

func (l *StdLogger) logf(at Level, format string, v ...any) {
	if l.level <= at {
		l.logger.Printf("["+at.String()+"] "+format, v...)
	}
}

func (l *StdLogger) Debug(format string, v ...any) { l.logf(LevelDebug, format, v...) }
func (l *StdLogger) Info(format string, v ...any)  { l.logf(LevelInfo, format, v...) }
func (l *StdLogger) Warn(format string, v ...any)  { l.logf(LevelWarn, format, v...) }
func (l *StdLogger) Error(format string, v ...any) { l.logf(LevelError, format, v...) }

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

var defaultLogger Logger = NewStdLogger(LevelInfo)

// SetDefault replaces the package-level logger.
func SetDefault(logger Logger) {
	defaultLogger = logger
}

// Default returns the current package-level logger.
func Default() Logger {
	return defaultLogger
}

// Debug logs through the package-level logger.
func Debug(format string, v ...any) { defaultLogger.Debug(format, v...) }

// Info logs through the package-level logger.
func Info(format string, v ...any) { defaultLogger.Info(format, v...) }

// Warn logs through the package-level logger.
func Warn(format string, v ...any) { defaultLogger.Warn(format, v...) }

// Error logs through the package-level logger.
func Error(format string, v ...any) { defaultLogger.Error(format, v...) }
