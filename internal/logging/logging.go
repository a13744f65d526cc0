// Package logging configures the process-wide slog logger.
//
// The level comes from DYNMAP_LOG_LEVEL when set, otherwise from the
// configured value. Levels: ERROR, WARN, INFO, DEBUG.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel overrides the configured log level.
const EnvLevel = "DYNMAP_LOG_LEVEL"

// Init installs a text handler on stderr at the resolved level and returns
// that level.
func Init(configLevel string) slog.Level {
	return InitWriter(os.Stderr, configLevel)
}

func InitWriter(w io.Writer, configLevel string) slog.Level {
	level := os.Getenv(EnvLevel)
	if level == "" {
		level = configLevel
	}

	slogLevel := ParseLevel(level)
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slogLevel,
	})))
	return slogLevel
}

// ParseLevel converts a level string to a slog.Level. Unknown strings map
// to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
