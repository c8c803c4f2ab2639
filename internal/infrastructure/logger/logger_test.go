package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Run("json logger writes structured entries to a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		log, err := New(&Config{
			Level:      "info",
			Format:     "json",
			Output:     path,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		require.NoError(t, err)

		log.Info("invoice issued",
			zap.String("tenant_id", "t-1"),
			zap.String("number", "F-2026-000001"),
		)
		require.NoError(t, Sync(log))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)

		var entry map[string]any
		require.NoError(t, json.Unmarshal(raw, &entry))
		assert.Equal(t, "invoice issued", entry["msg"])
		assert.Equal(t, "info", entry["level"])
		assert.Equal(t, "F-2026-000001", entry["number"])
		assert.NotEmpty(t, entry["time"])
		assert.NotEmpty(t, entry["caller"])
	})

	t.Run("level gate drops entries below the configured level", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "app.log")
		log, err := New(&Config{
			Level:      "warn",
			Format:     "json",
			Output:     path,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		})
		require.NoError(t, err)

		log.Info("dropped")
		log.Warn("kept")
		require.NoError(t, Sync(log))

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "dropped")
		assert.Contains(t, string(raw), "kept")
	})

	t.Run("console format builds a logger", func(t *testing.T) {
		log, err := New(&Config{
			Level:      "debug",
			Format:     "console",
			Output:     "stdout",
			TimeFormat: "15:04:05",
		})
		require.NoError(t, err)
		assert.NotNil(t, log)
	})

	t.Run("unopenable output path is an error", func(t *testing.T) {
		_, err := New(&Config{
			Level:  "info",
			Format: "json",
			Output: filepath.Join(t.TempDir(), "missing-dir", "app.log"),
		})
		assert.Error(t, err)
	})
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, levelFor("debug"))
	assert.Equal(t, zapcore.InfoLevel, levelFor("info"))
	assert.Equal(t, zapcore.WarnLevel, levelFor("warn"))
	assert.Equal(t, zapcore.WarnLevel, levelFor("WARNING"))
	assert.Equal(t, zapcore.ErrorLevel, levelFor("error"))
	assert.Equal(t, zapcore.InfoLevel, levelFor(""))
	assert.Equal(t, zapcore.InfoLevel, levelFor("verbose"))
}
