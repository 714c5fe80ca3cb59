// Package log configures the process-wide slog logger.
package log

import (
	"log/slog"
	"os"
)

// Setup installs the default logger at the requested level, stamping every
// record with the service name. Unknown levels fall back to info.
func Setup(service, logLevel string) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel),
	})

	slog.SetDefault(slog.New(handler).With("service", service))
}

func parseLevel(logLevel string) slog.Level {
	switch logLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithModule returns the default logger scoped to one module.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
