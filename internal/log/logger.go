// SPDX-License-Identifier: MIT
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

// Constants for log levels.
const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string (case-insensitive) to a LogLevel.
// Returns LevelInfo and false if the string is not recognized.
func ParseLevel(levelStr string) (LogLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

// --- Global Logger State ---

// currentLevel holds the current global log level atomically.
var currentLevel atomic.Uint32

// logger is the standard logger instance used internally.
// Date and time with microseconds.
var logger = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

func init() {
	// Renders are chatty at debug level; stay quiet until configured.
	SetLevel(LevelWarn)
}

// SetLevel sets the global logging level atomically.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel gets the current global logging level atomically.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// Configure applies the level named in configuration. Debug forces
// LevelDebug regardless of the name. Unknown names leave the level at
// LevelInfo and return an error so the caller can report the typo.
func Configure(levelName string, debug bool) error {
	if debug {
		SetLevel(LevelDebug)
		return nil
	}
	level, ok := ParseLevel(levelName)
	SetLevel(level)
	if !ok && levelName != "" {
		return fmt.Errorf("unknown log level %q", levelName)
	}
	return nil
}

// SetOutput redirects all log output, mainly for tests and the MCP server
// which owns stdout.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// shouldLog checks if a message at the given level should be logged based on the current global level.
func shouldLog(level LogLevel) bool {
	return level >= GetLevel()
}

func output(level LogLevel, prefix, msg string) {
	// INFO and WARN are one character shorter; pad to keep columns aligned.
	pad := ""
	if level == LevelInfo || level == LevelWarn {
		pad = " "
	}
	if prefix != "" {
		logger.Printf("[%s]%s %s: %s", level, pad, prefix, msg)
		return
	}
	logger.Printf("[%s]%s %s", level, pad, msg)
}

// --- Public Logging Functions ---

// Debugf logs a formatted debug message if the level is appropriate.
func Debugf(format string, v ...interface{}) {
	if shouldLog(LevelDebug) {
		output(LevelDebug, "", fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted info message if the level is appropriate.
func Infof(format string, v ...interface{}) {
	if shouldLog(LevelInfo) {
		output(LevelInfo, "", fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted warning message if the level is appropriate.
func Warnf(format string, v ...interface{}) {
	if shouldLog(LevelWarn) {
		output(LevelWarn, "", fmt.Sprintf(format, v...))
	}
}

// Errorf logs a formatted error message if the level is appropriate.
func Errorf(format string, v ...interface{}) {
	if shouldLog(LevelError) {
		output(LevelError, "", fmt.Sprintf(format, v...))
	}
}

// Fatalf logs a formatted fatal message and exits the application.
// Fatal messages are always logged regardless of the current level.
func Fatalf(format string, v ...interface{}) {
	logger.Fatalf("[%s] %s", LevelFatal, fmt.Sprintf(format, v...))
}

// --- Component loggers ---

// Component prefixes every message with a subsystem name, e.g. "engine" or
// "plugin". The zero value logs without a prefix.
type Component struct {
	name string
}

// For returns a Component logger for the named subsystem.
func For(name string) Component {
	return Component{name: name}
}

// Debugf logs a formatted debug message for the component.
func (c Component) Debugf(format string, v ...interface{}) {
	if shouldLog(LevelDebug) {
		output(LevelDebug, c.name, fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted info message for the component.
func (c Component) Infof(format string, v ...interface{}) {
	if shouldLog(LevelInfo) {
		output(LevelInfo, c.name, fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted warning for the component.
func (c Component) Warnf(format string, v ...interface{}) {
	if shouldLog(LevelWarn) {
		output(LevelWarn, c.name, fmt.Sprintf(format, v...))
	}
}

// Errorf logs a formatted error for the component.
func (c Component) Errorf(format string, v ...interface{}) {
	if shouldLog(LevelError) {
		output(LevelError, c.name, fmt.Sprintf(format, v...))
	}
}
