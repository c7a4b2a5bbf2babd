// Package logging builds the application's zerolog logger.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wricardo/co2-logistics-game/internal/settings"
)

// ParseLevel maps a settings level to zerolog, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger writing to out. Console format uses RFC3339
// timestamps; json writes one object per line. In stdio MCP mode out must
// not be stdout.
func New(cfg settings.LoggingSettings, out io.Writer) zerolog.Logger {
	w := out
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(w).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}
