package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "info", Format: FormatJSON, Writer: &buf})
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("service", "api").Msg("Rendered")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "api", entry["service"])
	assert.Equal(t, "Rendered", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Level: "debug", Writer: &buf})
	require.NoError(t, err)

	log.Debug().Msg("Starting render")
	assert.Contains(t, buf.String(), "Starting render")
	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
}

func TestNew_LevelFromEnv(t *testing.T) {
	t.Setenv(EnvLevel, "ERROR")

	log, err := New(Options{Writer: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, log.GetLevel())
}

func TestNew_DefaultLevel(t *testing.T) {
	t.Setenv(EnvLevel, "")

	log, err := New(Options{Writer: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	assert.Error(t, err)

	_, err = New(Options{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
