// ABOUTME: Leveled logging helpers backed by zerolog; writes to stderr by default
// ABOUTME: Package-level Debug/Info/Warn/Error plus component-scoped loggers

package log

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Level is a log severity.
type Level = zerolog.Level

// Level constants matching zerolog levels.
const (
	LevelDebug = zerolog.DebugLevel
	LevelInfo  = zerolog.InfoLevel
	LevelWarn  = zerolog.WarnLevel
	LevelError = zerolog.ErrorLevel
)

// Config controls where and how log lines are written.
type Config struct {
	Level  string    // optional level name ("debug", "info", ...)
	Output io.Writer // defaults to os.Stderr
	JSON   bool      // structured JSON instead of the console format
}

var (
	mu    sync.RWMutex
	base  zerolog.Logger
	level atomic.Int32
)

func init() {
	level.Store(int32(LevelInfo))
	Configure(Config{})
}

// Configure replaces the output sink. It may be called more than once;
// the last call wins.
func Configure(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if !cfg.JSON {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	l := zerolog.New(out).With().Timestamp().Logger()

	mu.Lock()
	base = l
	mu.Unlock()

	if cfg.Level != "" {
		if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
			SetLevel(parsed)
		}
	}
}

// SetLevel sets the global log level.
func SetLevel(l Level) {
	level.Store(int32(l))
}

// GetLevel returns the current log level.
func GetLevel() Level {
	return Level(level.Load())
}

// Logger tags every line with a component name.
type Logger struct {
	component string
}

// WithComponent returns a logger annotated with the given component name.
func WithComponent(component string) Logger {
	return Logger{component: component}
}

// Debug logs a debug message if the level allows it.
func (l Logger) Debug(format string, args ...any) { l.emit(LevelDebug, format, args) }

// Info logs an info message if the level allows it.
func (l Logger) Info(format string, args ...any) { l.emit(LevelInfo, format, args) }

// Warn logs a warning message if the level allows it.
func (l Logger) Warn(format string, args ...any) { l.emit(LevelWarn, format, args) }

// Error logs an error message (always emitted).
func (l Logger) Error(format string, args ...any) { l.emit(LevelError, format, args) }

func (l Logger) emit(lv Level, format string, args []any) {
	if lv < GetLevel() && lv < LevelError {
		return
	}

	mu.RLock()
	b := base
	mu.RUnlock()

	ev := b.WithLevel(lv)
	if l.component != "" {
		ev = ev.Str("component", l.component)
	}
	ev.Msgf(format, args...)
}

// Debug logs a debug message if the level allows it.
func Debug(format string, args ...any) { Logger{}.emit(LevelDebug, format, args) }

// Info logs an info message if the level allows it.
func Info(format string, args ...any) { Logger{}.emit(LevelInfo, format, args) }

// Warn logs a warning message if the level allows it.
func Warn(format string, args ...any) { Logger{}.emit(LevelWarn, format, args) }

// Error logs an error message (always emitted).
func Error(format string, args ...any) { Logger{}.emit(LevelError, format, args) }
