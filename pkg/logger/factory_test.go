package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devblog-app/devblog/pkg/logger"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("default is JSON at info level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithOutput(&buf))

		log.Debug("hidden")
		log.Info("visible", slog.String("k", "v"))

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "visible", record["msg"])
		assert.Equal(t, "v", record["k"])
	})

	t.Run("environment selects format and level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(logger.WithEnvironment("development"), logger.WithOutput(&buf))

		log.Debug("dev detail")

		out := buf.String()
		assert.Contains(t, out, "dev detail")
		assert.Contains(t, out, "env=development")
		assert.False(t, strings.HasPrefix(out, "{"), "development output should be text")
	})

	t.Run("static attributes appear on every record", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		log := logger.New(
			logger.WithOutput(&buf),
			logger.WithAttr(slog.String("service", "devblog")),
		)

		log.Info("one")

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "devblog", record["service"])
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, "error", logger.Error(errors.New("boom")).Key)
	assert.Equal(t, int64(42), logger.UserID(42).Value.Int64())
	assert.Equal(t, "auth", logger.Component("auth").Value.String())
	assert.Equal(t, slog.Attr{}, logger.RequestID(""))
}
