// Package logx provides structured logging with per-component prefixes.
package logx

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
)

// Level represents a log severity level.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	debugEnabled bool
	debugMutex   sync.RWMutex
)

//nolint:gochecknoinits // Required for env var initialization
func init() {
	v := strings.ToLower(os.Getenv("DEBUG"))
	debugEnabled = v == "1" || v == "true"
}

// SetDebug enables or disables debug-level output at runtime.
func SetDebug(enabled bool) {
	debugMutex.Lock()
	defer debugMutex.Unlock()
	debugEnabled = enabled
}

// DebugEnabled reports whether debug-level output is active.
func DebugEnabled() bool {
	debugMutex.RLock()
	defer debugMutex.RUnlock()
	return debugEnabled
}

// Logger writes leveled, component-prefixed log lines.
type Logger struct {
	component string
	logger    *log.Logger
}

// NewLogger creates a logger for the given component.
func NewLogger(component string) *Logger {
	return &Logger{
		component: component,
		logger:    log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) logf(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Printf("[%s] %s: %s", l.component, level, msg)
}

// Debug logs a debug-level message. No-op unless debug output is enabled.
func (l *Logger) Debug(format string, args ...any) {
	if !DebugEnabled() {
		return
	}
	l.logf(LevelDebug, format, args...)
}

// Info logs an info-level message.
func (l *Logger) Info(format string, args ...any) {
	l.logf(LevelInfo, format, args...)
}

// Warn logs a warning-level message.
func (l *Logger) Warn(format string, args ...any) {
	l.logf(LevelWarn, format, args...)
}

// Error logs an error-level message.
func (l *Logger) Error(format string, args ...any) {
	l.logf(LevelError, format, args...)
}
