package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLogLine(t *testing.T, buf *bytes.Buffer) LogEntry {
	t.Helper()
	var entry LogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestStructuredLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(LogLevelDebug, &buf)

	logger.Info("scan complete",
		String("table", "projects"),
		Int64("count", 42),
		Bool("failed", false))

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, LogLevelInfo, entry.Level)
	assert.Equal(t, "scan complete", entry.Message)
	assert.Equal(t, "projects", entry.Fields["table"])
	assert.Equal(t, float64(42), entry.Fields["count"])
	assert.Equal(t, false, entry.Fields["failed"])
}

func TestStructuredLogger_ErrorField(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(LogLevelDebug, &buf)

	logger.Error("check failed", errors.New("connection refused"), String("check", "orphans"))

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, LogLevelError, entry.Level)
	assert.Equal(t, "connection refused", entry.Error)
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(LogLevelWarn, &buf)

	logger.Debug("noise")
	logger.Info("noise")
	assert.Zero(t, buf.Len())

	logger.Warn("something")
	assert.NotZero(t, buf.Len())
}

func TestStructuredLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStructuredLogger(LogLevelInfo, &buf)

	scoped := logger.With(String("correlation_id", "corr-1"))
	scoped.Info("repair applied", String("table", "tasks"))

	entry := decodeLogLine(t, &buf)
	assert.Equal(t, "corr-1", entry.Fields["correlation_id"])
	assert.Equal(t, "tasks", entry.Fields["table"])
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("garbage"))
}
