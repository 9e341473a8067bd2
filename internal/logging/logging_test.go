package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{" warn ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "ParseLevel(%q)", tt.input)
	}
}

func TestNewWithWriter(t *testing.T) {
	t.Run("JSONFormat", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(config.LogConfig{Level: "info", Format: "json"}, &buf)
		logger.Info("feed fetched", "source", "POZ")

		var rec map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
		assert.Equal(t, "feed fetched", rec["msg"])
		assert.Equal(t, "POZ", rec["source"])
		assert.Equal(t, "newsdesk", rec["app"])
	})

	t.Run("LevelFiltering", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewWithWriter(config.LogConfig{Level: "warn"}, &buf)
		logger.Info("dropped")
		assert.Empty(t, buf.String())

		logger.Warn("kept")
		assert.Contains(t, buf.String(), "kept")
	})
}
