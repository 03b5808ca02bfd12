package log

import (
	"github.com/kataras/golog"
)

// GologLogger adapts a kataras/golog logger to the memflow Logger
// interface. Level filtering is delegated to golog itself.
type GologLogger struct {
	logger *golog.Logger
}

var _ Logger = (*GologLogger)(nil)

// NewGologLogger wraps an existing golog.Logger.
func NewGologLogger(logger *golog.Logger) *GologLogger {
	return &GologLogger{logger: logger}
}

func (l *GologLogger) Debug(format string, v ...any) { l.logger.Debugf(format, v...) }
func (l *GologLogger) Info(format string, v ...any)  { l.logger.Infof(format, v...) }
func (l *GologLogger) Warn(format string, v ...any)  { l.logger.Warnf(format, v...) }
func (l *GologLogger) Error(format string, v ...any) { l.logger.Errorf(format, v...) }

// SetLevel maps a memflow level onto the wrapped golog logger.
func (l *GologLogger) SetLevel(level Level) {
	name := "info"
	switch level {
	case LevelDebug:
		name = "debug"
	case LevelInfo:
		name = "info"
	case LevelWarn:
		name = "warn"
	case LevelError:
		name = "error"
	case LevelNone:
		name = "disable"
	}
	l.logger.SetLevel(name)
}
