package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Get-Company/GC-Bridge-4/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	t.Run("builds a console logger", func(t *testing.T) {
		log, err := New(config.LogConfig{Level: "debug", Format: "console", Output: "stdout"})

		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zap.DebugLevel))
	})

	t.Run("empty settings default to info on stdout", func(t *testing.T) {
		log, err := New(config.LogConfig{})

		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(zap.DebugLevel))
		assert.True(t, log.Core().Enabled(zap.InfoLevel))
	})

	t.Run("rejects an unknown level", func(t *testing.T) {
		_, err := New(config.LogConfig{Level: "loud"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "loud")
	})

	t.Run("writes json lines to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bridge.log")

		log, err := New(config.LogConfig{Level: "info", Format: "json", Output: path})
		require.NoError(t, err)

		log.Info("order posted", zap.String("orderNumber", "SW-10042"))
		require.NoError(t, Sync(log))

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &entry))
		assert.Equal(t, "order posted", entry["msg"])
		assert.Equal(t, "SW-10042", entry["orderNumber"])
		assert.Equal(t, "info", entry["level"])
		assert.NotEmpty(t, entry["time"])
		assert.NotEmpty(t, entry["caller"])
	})

	t.Run("fails when the log file cannot be opened", func(t *testing.T) {
		_, err := New(config.LogConfig{Output: filepath.Join(t.TempDir(), "missing", "bridge.log")})

		require.Error(t, err)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"ERROR", false},
		{"", false},
		{"fatal", true},
		{"verbose", true},
	}

	for _, tt := range tests {
		name := tt.level
		if name == "" {
			name = "empty"
		}
		t.Run(name, func(t *testing.T) {
			_, err := parseLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
