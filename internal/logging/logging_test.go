package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerLevels(t *testing.T) {
	require.Equal(t, zerolog.DebugLevel, NewLogger(Config{Level: "DEBUG"}).GetLevel())
	require.Equal(t, zerolog.InfoLevel, NewLogger(Config{Level: "bogus"}).GetLevel())
	require.Equal(t, zerolog.InfoLevel, NewLogger(Config{}).GetLevel())
	require.Equal(t, zerolog.WarnLevel, levelFor(" warn "))
}

func TestWriterForDefaultsToStderr(t *testing.T) {
	require.Equal(t, os.Stderr, writerFor(Config{}))
	require.Equal(t, os.Stdout, writerFor(Config{Output: "STDOUT"}))
	require.IsType(t, zerolog.ConsoleWriter{}, writerFor(Config{Format: "console"}))
}

func TestComponentTagsEntries(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(zerolog.New(&buf), "poller")
	logger.Info().Msg("tick")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "poller", entry["component"])
	require.Equal(t, "tick", entry["message"])
}
