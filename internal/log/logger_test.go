package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewJSONLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentNotify, Output: &buf})

	logger.Info("Notification sent", FieldOwnerID, "u1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, ComponentNotify, line[FieldComponent])
	assert.Equal(t, "u1", line[FieldOwnerID])
	assert.Equal(t, "Notification sent", line["msg"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Output: &buf})

	logger.Info("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestContextRoundTrip(t *testing.T) {
	logger := New(DefaultConfig()).WithComponent(ComponentHTTP)

	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, FromContext(ctx))

	fallback := FromContext(context.Background())
	require.NotNil(t, fallback)
	assert.Equal(t, "unknown", fallback.Component())
}

func TestLogFields(t *testing.T) {
	fields := NewFields().
		WithOwner("u1").
		WithOperation(OpRecompute).
		WithError(nil)

	assert.Len(t, fields.ToSlice(), 4)
	assert.NotContains(t, fields, FieldError)
}

func TestLogFieldsHTTP(t *testing.T) {
	fields := NewFields().
		WithHTTPRequest("POST", "/api/transactions", "", "").
		WithHTTPResponse(201, 12, true)

	assert.Equal(t, "POST", fields[FieldMethod])
	assert.Equal(t, "/api/transactions", fields[FieldPath])
	assert.NotContains(t, fields, FieldUserAgent)
	assert.Equal(t, 201, fields[FieldStatusCode])
	assert.Equal(t, int64(12), fields[FieldDuration])
	assert.Equal(t, true, fields[FieldSuccess])
}
