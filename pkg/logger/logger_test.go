package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/customdomains/pkg/logger"
)

func TestDecorator_InjectsContextAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	h := logger.NewLogHandlerDecorator(slog.NewJSONHandler(&buf, nil), append(logger.DefaultExtractors(), nil)...)
	log := slog.New(h)

	ctx := logger.WithRequestID(context.Background(), "req-1")
	ctx = logger.WithOwnerID(ctx, 42)
	ctx = logger.WithMapping(ctx, "map-1", "shop.example.com")
	log.InfoContext(ctx, "domain verified")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "req-1", rec["request_id"])
	assert.EqualValues(t, 42, rec["owner_id"])
	assert.Equal(t, "map-1", rec["mapping_id"])
	assert.Equal(t, "shop.example.com", rec["domain"])
}

func TestDecorator_SkipsMissingValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(logger.NewLogHandlerDecorator(slog.NewJSONHandler(&buf, nil), logger.DefaultExtractors()...))
	log.With(slog.String("component", "sweep")).InfoContext(context.Background(), "started")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "sweep", rec["component"])
	assert.NotContains(t, rec, "request_id")
	assert.NotContains(t, rec, "owner_id")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, logger.ParseLevel(tt.in))
		})
	}
}

func TestNewWithSentry_NoDSN(t *testing.T) {
	t.Parallel()

	log := logger.NewWithSentry(logger.SentryConfig{}, logger.Config{Format: "text"})
	require.NotNil(t, log)
	assert.True(t, log.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, log.Enabled(context.Background(), slog.LevelDebug))
}
