package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestInit_FileOutput(t *testing.T) {
	prev := zlog.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		zlog.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	path := filepath.Join(t.TempDir(), "sleepmix.log")
	closer, err := Init(Config{Output: "file", Level: "info", File: path})
	require.NoError(t, err)

	zlog.Debug().Msg("hidden")
	log := Component("playback")
	log.Info().Msgf("slot: acquired track=%s", "rain")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "playback", entry["component"])
	assert.Equal(t, "slot: acquired track=rain", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestInit_Errors(t *testing.T) {
	_, err := Init(Config{Output: "file"})
	assert.Error(t, err)

	_, err = Init(Config{Output: "syslog"})
	assert.Error(t, err)
}

func TestShortCaller(t *testing.T) {
	assert.Equal(t, "playback/controller.go:42", shortCaller(0, filepath.Join("src", "internal", "app", "playback", "controller.go"), 42))
	assert.Equal(t, "main.go:7", shortCaller(0, "main.go", 7))
}
