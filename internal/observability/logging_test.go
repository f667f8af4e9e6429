package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLoggerWithWritersFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("chat completed", "thread_id", "abc123")

	require.Contains(t, stderr.String(), "chat completed")
	require.Contains(t, stderr.String(), "abc123")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	require.Equal(t, "chat completed", entry["msg"])
	require.Equal(t, "abc123", entry["thread_id"])
}

func TestSetupLoggerWithWritersRespectsLevel(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Debug("should be dropped")

	require.Empty(t, strings.TrimSpace(stderr.String()))
	require.Empty(t, strings.TrimSpace(file.String()))
}

func TestRequestContextAttachesRequestAttrs(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	rc := NewRequestContext(logger, "alice")
	rc.Info("chat started", slog.String(LogFieldThreadID, "t1"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(file.Bytes(), &entry))
	require.Equal(t, rc.RequestID, entry[LogFieldRequestID])
	require.Equal(t, "alice", entry[LogFieldUserID])
	require.Equal(t, "t1", entry[LogFieldThreadID])
}
