package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildWritesJSONWithServiceField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chat.log")

	l, err := Build("info", "json", path)
	require.NoError(t, err)
	l.Debug("dropped")
	l.Info("Turn processed", zap.String("session_id", "s1"))
	require.NoError(t, l.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Turn processed", entry["message"])
	assert.Equal(t, "lewas-chat", entry["service"])
	assert.Equal(t, "s1", entry["session_id"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "timestamp")
}

func TestBuildFansOutToEveryPath(t *testing.T) {
	dir := t.TempDir()
	first, second := filepath.Join(dir, "a.log"), filepath.Join(dir, "b.log")

	l, err := Build("debug", "console", first+", "+second)
	require.NoError(t, err)
	l.Debug("hello")
	require.NoError(t, l.Sync())

	for _, path := range []string{first, second} {
		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "hello")
	}
}

func TestBuildRejectsBadInput(t *testing.T) {
	_, err := Build("loud", "json", "stdout")
	assert.ErrorContains(t, err, "invalid log level")

	_, err = Build("info", "json", filepath.Join(t.TempDir(), "missing", "x.log"))
	assert.ErrorContains(t, err, "failed to open log file")
}
