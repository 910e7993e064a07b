package ghe_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/ghe-client/pkg/ghe"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("json output at level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger, err := ghe.NewLogger(&ghe.LogConfig{Level: "warn", Format: "json", Output: &buf})
		require.NoError(t, err)

		adapter := ghe.NewZerologLogger(logger)
		adapter.Info("hidden", nil)
		adapter.Warn("visible", map[string]interface{}{"hook_id": 7})

		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "visible", line["message"])
		assert.Equal(t, "warn", line["level"])
		assert.InDelta(t, 7, line["hook_id"], 0)
	})

	t.Run("console output by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer

		logger, err := ghe.NewLogger(&ghe.LogConfig{Output: &buf})
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())

		ghe.NewZerologLogger(logger).Error("request failed", map[string]interface{}{"status": 500})
		assert.Contains(t, buf.String(), "request failed")
	})

	t.Run("rejects unknown settings", func(t *testing.T) {
		t.Parallel()

		_, err := ghe.NewLogger(&ghe.LogConfig{Level: "chatty"})
		require.Error(t, err)

		_, err = ghe.NewLogger(&ghe.LogConfig{Format: "xml"})
		require.Error(t, err)
	})

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()

		logger, err := ghe.NewLogger(nil)
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.GetLevel())
	})
}
