package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/co2-logistics-game/internal/settings"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.TraceLevel, ParseLevel("trace"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(settings.LoggingSettings{Level: "info", Format: "json"}, &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("session", "ab12").Msg("Session created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ab12", entry["session"])
	assert.Equal(t, "Session created", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger := New(settings.LoggingSettings{Level: "debug", Format: "console"}, &buf)

	logger.Debug().Msg("Road lookup")

	assert.Contains(t, buf.String(), "Road lookup")
	assert.Contains(t, buf.String(), "DBG")
}
