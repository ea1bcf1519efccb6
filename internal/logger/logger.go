package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

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

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// ParseLevel converts a level name such as "info" or "WARN" into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

const timeFormat = "2006-01-02 15:04:05.000"

// Logger is a thread-safe levelled logger.
type Logger struct {
	mu       sync.Mutex
	zl       zerolog.Logger
	minLevel Level
}

// Default is the logger used by the package-level functions.
var Default = New(os.Stderr, LevelInfo)

// New creates a logger writing human-readable lines to out.
func New(out io.Writer, minLevel Level) *Logger {
	cw := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		TimeFormat: timeFormat,
	}
	return newLogger(cw, minLevel)
}

// NewJSON creates a logger writing one JSON object per line to out.
func NewJSON(out io.Writer, minLevel Level) *Logger {
	return newLogger(out, minLevel)
}

func newLogger(w io.Writer, minLevel Level) *Logger {
	return &Logger{
		zl:       zerolog.New(w).With().Timestamp().Logger(),
		minLevel: minLevel,
	}
}

// SetLevel changes the minimum level that is written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.minLevel
}

func (l *Logger) log(level Level, tag string, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.minLevel {
		return
	}

	ev := l.zl.WithLevel(level.zerolog())
	if tag != "" {
		ev = ev.Str("tag", tag)
	}
	ev.Msgf(format, args...)
}

// Debug writes a debug message.
func (l *Logger) Debug(tag string, format string, args ...any) {
	l.log(LevelDebug, tag, format, args...)
}

// Info writes an informational message.
func (l *Logger) Info(tag string, format string, args ...any) {
	l.log(LevelInfo, tag, format, args...)
}

// Warn writes a warning.
func (l *Logger) Warn(tag string, format string, args ...any) {
	l.log(LevelWarn, tag, format, args...)
}

// Error writes an error message.
func (l *Logger) Error(tag string, format string, args ...any) {
	l.log(LevelError, tag, format, args...)
}

// Package-level helpers using Default.

// Debug writes a debug message to Default.
func Debug(tag string, format string, args ...any) {
	Default.Debug(tag, format, args...)
}

// Info writes an informational message to Default.
func Info(tag string, format string, args ...any) {
	Default.Info(tag, format, args...)
}

// Warn writes a warning to Default.
func Warn(tag string, format string, args ...any) {
	Default.Warn(tag, format, args...)
}

// Error writes an error message to Default.
func Error(tag string, format string, args ...any) {
	Default.Error(tag, format, args...)
}

// SetDefault replaces Default. It is intended to be called once at startup.
func SetDefault(l *Logger) {
	Default = l
}
