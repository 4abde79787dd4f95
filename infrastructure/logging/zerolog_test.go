package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture returns a logger writing JSON lines into the returned buffer.
func capture() (*ZerologLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return FromZerolog(zerolog.New(&buf)), &buf
}

// lastLine decodes the final JSON log line from the buffer.
func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestNew_LevelParsing(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "debug", level: "debug", want: zerolog.DebugLevel},
		{name: "warn", level: "warn", want: zerolog.WarnLevel},
		{name: "mixed case", level: "ERROR", want: zerolog.ErrorLevel},
		{name: "empty falls back to info", level: "", want: zerolog.InfoLevel},
		{name: "garbage falls back to info", level: "verbose", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(Config{Level: tt.level, Format: "json"})
			assert.Equal(t, tt.want, logger.Zerolog().GetLevel())
		})
	}
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	assert.Equal(t, zerolog.InfoLevel, logger.Zerolog().GetLevel())
}

func TestZerologLogger_Levels(t *testing.T) {
	logger, buf := capture()

	logger.Debug("fine detail")
	assert.Equal(t, "debug", lastLine(t, buf)["level"])

	logger.Info("notable event")
	assert.Equal(t, "info", lastLine(t, buf)["level"])

	logger.Warn("anomaly")
	assert.Equal(t, "warn", lastLine(t, buf)["level"])

	logger.Error("failure")
	entry := lastLine(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "failure", entry["message"])
}

func TestZerologLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := FromZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))

	logger.Debug("dropped")
	logger.Info("dropped")
	assert.Empty(t, buf.String())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestZerologLogger_KeyValuePairs(t *testing.T) {
	logger, buf := capture()

	logger.Info("pass completed", "pass", "p-1", "processed", 4, "ok", true)

	entry := lastLine(t, buf)
	assert.Equal(t, "p-1", entry["pass"])
	assert.Equal(t, 4.0, entry["processed"])
	assert.Equal(t, true, entry["ok"])
}

func TestZerologLogger_UnevenKeyValues(t *testing.T) {
	logger, buf := capture()

	// A stray trailing value is kept under "arg" instead of dropped.
	logger.Info("odd", "node", "feed", "dangling")

	entry := lastLine(t, buf)
	assert.Equal(t, "feed", entry["node"])
	assert.Equal(t, "dangling", entry["arg"])
}

func TestZerologLogger_NonStringKey(t *testing.T) {
	logger, buf := capture()

	logger.Info("numeric key", 42, "answer")

	entry := lastLine(t, buf)
	assert.Equal(t, "answer", entry["42"])
}

func TestZerologLogger_WithComponent(t *testing.T) {
	logger, buf := capture()

	logger.WithComponent("executor").Info("ready")

	entry := lastLine(t, buf)
	assert.Equal(t, "executor", entry["component"])
	assert.Equal(t, "ready", entry["message"])

	// The parent logger stays untagged.
	logger.Info("plain")
	_, tagged := lastLine(t, buf)["component"]
	assert.False(t, tagged)
}
