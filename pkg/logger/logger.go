package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Minimal leveled logger shared by the sync service.
// - zero external deps
// - Debug/Info/Warn/Error/Fatal variants, level set once via Init(level)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var (
	mu     sync.RWMutex
	logger *log.Logger = log.New(os.Stdout, "", 0)
	level  Level       = LevelInfo
)

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
}

func shouldLog(l Level) bool {
	mu.RLock()
	defer mu.RUnlock()
	return l >= level
}

func logf(lvl Level, tag, format string, v ...interface{}) {
	if !shouldLog(lvl) {
		return
	}
	prefix := fmt.Sprintf("%s [%s] ", time.Now().Format(time.RFC3339), strings.ToUpper(tag))
	logger.Printf(prefix+format, v...)
}

func Debugf(format string, v ...interface{}) { logf(LevelDebug, "debug", format, v...) }
func Infof(format string, v ...interface{})  { logf(LevelInfo, "info", format, v...) }
func Warnf(format string, v ...interface{})  { logf(LevelWarn, "warn", format, v...) }
func Errorf(format string, v ...interface{}) { logf(LevelError, "error", format, v...) }

func Fatalf(format string, v ...interface{}) {
	logf(LevelFatal, "fatal", format, v...)
	os.Exit(1)
}

// Debug/Info/Warn/Error helpers that accept a single string
func Debug(v string) { Debugf("%s", v) }
func Info(v string)  { Infof("%s", v) }
func Warn(v string)  { Warnf("%s", v) }
func Error(v string) { Errorf("%s", v) }

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	default:
		return "info"
	}
}
