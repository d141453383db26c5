package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		expected slog.Level
	}{
		{name: "debug", expected: slog.LevelDebug},
		{name: "WARN", expected: slog.LevelWarn},
		{name: "error", expected: slog.LevelError},
		{name: "", expected: slog.LevelInfo},
		{name: "verbose", expected: slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.name), tt.name)
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewHandler(&buf, "json", "warn"))
	logger.Info("skipped")
	logger.Warn("kept", "workflow_id", "wf1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "wf1", record["workflow_id"])
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer

	slog.New(NewHandler(&buf, "", "info")).Info("hello", "module", "api")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "module=api")
}
