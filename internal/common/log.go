package common

import (
	"fmt"
	"os"
	"time"

	"github.com/phuslu/log"
)

// LoggingEnabled controls whether Logf and LogDuration produce output.
var LoggingEnabled = true

// Logger is the structured logger shared by all storage components.
var Logger = log.Logger{
	Level:      log.InfoLevel,
	TimeFormat: "15:04:05.000",
	Writer:     &log.IOWriter{Writer: os.Stderr},
}

// SetLogLevel sets the minimum level of Logger, e.g. "debug" or "warn".
func SetLogLevel(level string) {
	Logger.Level = log.ParseLevel(level)
}

// Debug returns a debug entry, or nil when logging is disabled. A nil
// entry discards every field and message chained onto it.
func Debug() *log.Entry {
	if !LoggingEnabled {
		return nil
	}
	return Logger.Debug()
}

// Info returns an info entry, or nil when logging is disabled.
func Info() *log.Entry {
	if !LoggingEnabled {
		return nil
	}
	return Logger.Info()
}

// Warn returns a warn entry, or nil when logging is disabled.
func Warn() *log.Entry {
	if !LoggingEnabled {
		return nil
	}
	return Logger.Warn()
}

// Logf logs a formatted message at info level if logging is enabled.
func Logf(format string, args ...interface{}) {
	Info().Msgf(format, args...)
}

// formatDuration formats a duration with 2 decimal places.
// Returns a string like "1.23 ms" (no padding).
func formatDuration(d time.Duration) string {
	ms := float64(d) / float64(time.Millisecond)

	if ms >= 1000 {
		sec := ms / 1000
		return fmt.Sprintf("%.2f s", sec)
	} else if ms < 0.01 {
		us := ms * 1000
		return fmt.Sprintf("%.2f us", us)
	}
	return fmt.Sprintf("%.2f ms", ms)
}

// LogDuration logs a message with the elapsed time since start.
func LogDuration(start time.Time, format string, args ...interface{}) {
	Info().Str("elapsed", formatDuration(time.Since(start))).Msgf(format, args...)
}
