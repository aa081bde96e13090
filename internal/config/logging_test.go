package config_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadowlend/shadowlend/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected config.LogLevel
	}{
		{"off lowercase", "off", config.LogLevelOff},
		{"off uppercase", "OFF", config.LogLevelOff},
		{"none", "none", config.LogLevelOff},
		{"error lowercase", "error", config.LogLevelError},
		{"debug uppercase", "DEBUG", config.LogLevelDebug},
		{"with whitespace", "  debug  ", config.LogLevelDebug},
		{"empty returns error", "", config.LogLevelError},
		{"unknown value", "warn", config.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, config.ParseLogLevel(tt.input))
		})
	}
}

func TestLogLevel_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "off", config.LogLevelOff.String())
	assert.Equal(t, "error", config.LogLevelError.String())
	assert.Equal(t, "debug", config.LogLevelDebug.String())
	assert.Equal(t, "error", config.LogLevel(99).String())
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestNewLoggerTo_JSONLines(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewLoggerTo(config.LogLevelDebug, &buf)

	logger.Debug("connect attempt %d", 1)
	logger.Error("connect failed: %s", "port disconnected")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "connect attempt 1", lines[0]["msg"])
	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "connect failed: port disconnected", lines[1]["msg"])
	assert.Contains(t, lines[0], "ts")
}

func TestLogger_LevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewLoggerTo(config.LogLevelError, &buf)

	logger.Debug("hidden")
	logger.Error("shown")
	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])

	buf.Reset()
	logger.SetLevel(config.LogLevelDebug)
	assert.Equal(t, config.LogLevelDebug, logger.Level())
	logger.Debug("now visible")
	require.Len(t, decodeLines(t, &buf), 1)

	buf.Reset()
	logger.SetLevel(config.LogLevelOff)
	logger.Error("silenced")
	assert.Empty(t, buf.String())
}

func TestNewLogger_LevelOffOrEmptyPath(t *testing.T) {
	t.Parallel()

	logger, err := config.NewLogger(config.LogLevelOff, filepath.Join(t.TempDir(), "x.log"))
	require.NoError(t, err)
	logger.Error("nothing")
	require.NoError(t, logger.Close())

	logger, err = config.NewLogger(config.LogLevelDebug, "")
	require.NoError(t, err)
	logger.Debug("nothing")
	require.NoError(t, logger.Close())
}

func TestNewLogger_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "logs", "shadowlend.log")

	logger, err := config.NewLogger(config.LogLevelDebug, path)
	require.NoError(t, err)
	assert.Equal(t, path, logger.Path())

	logger.Debug("eager reconnect skipped")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)
	assert.Contains(t, string(data), "eager reconnect skipped")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Logging after close is a no-op.
	logger.Error("after close")
}

func TestNewLogger_InvalidPath(t *testing.T) {
	t.Parallel()
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, err := config.NewLogger(config.LogLevelError, filepath.Join(blocker, "sub", "x.log"))
	require.Error(t, err)
}

func TestNullLogger(t *testing.T) {
	t.Parallel()
	logger := config.NullLogger()
	assert.Equal(t, config.LogLevelOff, logger.Level())
	logger.Debug("x")
	logger.Error("y")
	require.NoError(t, logger.Close())
}

func TestLogger_Writer(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewLoggerTo(config.LogLevelDebug, &buf)

	w := logger.Writer(config.LogLevelError)
	n, err := w.Write([]byte("  from writer \n"))
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "from writer", lines[0]["msg"])
}

func TestLogger_Concurrent(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewLoggerTo(config.LogLevelDebug, &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Debug("worker %d", n)
		}(i)
	}
	wg.Wait()

	assert.Len(t, decodeLines(t, &buf), 20)
}
