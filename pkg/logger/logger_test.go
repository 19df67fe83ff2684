package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/pkg/environment"
	"github.com/dmitrymomot/agencyhub/pkg/logger"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json by default", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))
		log.Info("hello")

		entry := decode(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "hello", entry["msg"])
	})

	t.Run("text format", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithFormat(logger.FormatText))
		log.Info("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})

	t.Run("invalid format panics", func(t *testing.T) {
		t.Parallel()
		assert.Panics(t, func() { logger.New(logger.WithFormat("xml")) })
	})

	t.Run("production environment", func(t *testing.T) {
		t.Parallel()
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithEnvironment(environment.Production, "agencyhub"),
		)
		log.Debug("hidden")
		assert.Empty(t, buf.String())

		log.Info("visible")
		entry := decode(t, buf)
		assert.Equal(t, "agencyhub", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("context extractors", func(t *testing.T) {
		t.Parallel()
		type key struct{}
		buf := &bytes.Buffer{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextExtractors(nil, func(ctx context.Context) (slog.Attr, bool) {
				v, ok := ctx.Value(key{}).(string)
				return slog.String("trace", v), ok
			}),
		)
		log.InfoContext(context.WithValue(context.Background(), key{}, "abc"), "msg")
		assert.Equal(t, "abc", decode(t, buf)["trace"])
	})
}

func TestAttrs(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.Attr{}, logger.Error(nil))
	assert.Equal(t, "error", logger.Error(errors.New("boom")).Key)

	id := uuid.New()
	assert.Equal(t, id.String(), logger.AgencyID(id).Value.String())
	assert.Equal(t, slog.Attr{}, logger.AgencyID(nil))
	assert.Equal(t, slog.Attr{}, logger.UserID(""))
	assert.Equal(t, "u1", logger.UserID("u1").Value.String())
	assert.Equal(t, "past_due", logger.Status("past_due").Value.String())
	assert.Equal(t, "evt_1", logger.EventID("evt_1").Value.String())
}
