package logger

import (
	"log"
	"strings"
	"sync/atomic"
)

// Level is a coarse log severity. Messages below the current level are dropped.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var current atomic.Int32

// Init sets the initial level from a string ("debug", "info", "warn", "error").
// Unknown values fall back to info.
func Init(level string) {
	current.Store(int32(parseLevel(level)))
}

// SetLevel changes the level at runtime (used by the feature-flag watcher).
func SetLevel(level string) {
	current.Store(int32(parseLevel(level)))
}

// GetLevel returns the current level as its string name.
func GetLevel() string {
	switch Level(current.Load()) {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func parseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func logf(at Level, prefix, format string, args []interface{}) {
	if Level(current.Load()) > at {
		return
	}
	log.Printf(prefix+format, args...)
}

// Debugf logs at debug level.
func Debugf(format string, args ...interface{}) {
	logf(LevelDebug, "DEBUG ", format, args)
}

// Infof logs at info level.
func Infof(format string, args ...interface{}) {
	logf(LevelInfo, "INFO ", format, args)
}

// Warnf logs at warn level.
func Warnf(format string, args ...interface{}) {
	logf(LevelWarn, "WARN ", format, args)
}

// Errorf logs at error level.
func Errorf(format string, args ...interface{}) {
	logf(LevelError, "ERROR ", format, args)
}
