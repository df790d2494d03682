package telemetry

import (
	"io"
	"os"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = newLogger(os.Stdout)
)

func init() {
	zerolog.TimestampFieldName = "ts"
	zerolog.MessageFieldName = "msg"
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05Z07:00"
}

func newLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}

// SetOutput redirects log lines to w and returns a function restoring the previous writer.
func SetOutput(w io.Writer) (restore func()) {
	mu.Lock()
	prev := logger
	logger = newLogger(w)
	mu.Unlock()
	return func() {
		mu.Lock()
		logger = prev
		mu.Unlock()
	}
}

// Info writes an info-level log line with the given fields.
func Info(msg string, fields map[string]any) {
	write(zerolog.InfoLevel, msg, fields)
}

// Warn writes a warn-level log line and forwards it to Sentry when configured.
func Warn(msg string, fields map[string]any) {
	write(zerolog.WarnLevel, msg, fields)
	capture(sentry.LevelWarning, msg, fields)
}

// Error writes an error-level log line and forwards it to Sentry when configured.
func Error(msg string, fields map[string]any) {
	write(zerolog.ErrorLevel, msg, fields)
	capture(sentry.LevelError, msg, fields)
}

func write(level zerolog.Level, msg string, fields map[string]any) {
	mu.RLock()
	l := logger
	mu.RUnlock()
	l.WithLevel(level).Fields(fields).Msg(msg)
}

func capture(level sentry.Level, msg string, fields map[string]any) {
	hub := sentry.CurrentHub()
	if hub.Client() == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		scope.SetExtras(fields)
		hub.CaptureMessage(msg)
	})
}
