// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging wraps a process-wide zerolog logger. Commands call Init
// once from the root command; packages log through the helpers or take
// Logger() when they need a child logger with fixed fields.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
)

// Init replaces the process logger. When pretty is true output goes through
// a zerolog.ConsoleWriter; otherwise one JSON object per line is written.
// An unknown level falls back to info.
func Init(w io.Writer, level string, pretty bool) {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	l := zerolog.New(w).With().Timestamp().Logger().Level(parseLevel(level))

	mu.Lock()
	logger = l
	mu.Unlock()
}

// SetLogLevel changes the level of the current logger.
func SetLogLevel(level string) {
	mu.Lock()
	logger = logger.Level(parseLevel(level))
	mu.Unlock()
}

// SetLoggerForTest installs l as the process logger.
func SetLoggerForTest(l zerolog.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// Logger returns a copy of the current logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, kv ...any) { emit(zerolog.DebugLevel, msg, kv) }
func Info(msg string, kv ...any)  { emit(zerolog.InfoLevel, msg, kv) }
func Warn(msg string, kv ...any)  { emit(zerolog.WarnLevel, msg, kv) }
func Error(msg string, kv ...any) { emit(zerolog.ErrorLevel, msg, kv) }

func emit(level zerolog.Level, msg string, kv []any) {
	l := Logger()
	ev := l.WithLevel(level)
	if ev == nil {
		return
	}
	if fields := pairs(kv); len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(msg)
}

// pairs turns alternating key/value arguments into a field map. A trailing
// key without a value is dropped.
func pairs(kv []any) map[string]any {
	if len(kv) < 2 {
		return nil
	}
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields[key] = kv[i+1]
	}
	return fields
}

func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
