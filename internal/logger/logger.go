package logger

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

var initOnce sync.Once

// Init configures the process-wide logger. Safe to call more than once;
// only the first call takes effect.
func Init(level string, jsonFormat bool) {
	initOnce.Do(func() {
		opts := &slog.HandlerOptions{Level: parseLevel(level)}

		var handler slog.Handler
		if jsonFormat {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(os.Stderr, opts)
		}

		slog.SetDefault(slog.New(handler))
	})
}

// For returns a logger tagged with the originating component.
func For(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
