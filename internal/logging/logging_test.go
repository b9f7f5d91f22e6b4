package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"stocksentiment/internal/config"
)

func TestNew_JSONLevelFilter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l, c, err := New(config.Log{Level: "warn", Format: "json", Output: "stdout"}, &buf)
	require.NoError(t, err)
	defer c.Close()

	l.Info("dropped")
	l.Warn("kept", "symbol", "AAPL")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "kept", rec["msg"])
	require.Equal(t, "AAPL", rec["symbol"])
}

func TestNew_BothWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "app.log")
	var buf bytes.Buffer
	l, c, err := New(config.Log{Level: "info", Format: "text", Output: "both", File: path, MaxSizeMB: 1}, &buf)
	require.NoError(t, err)

	l.Info("hello", "source", "yahoo_chart")
	require.NoError(t, c.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(b), "source=yahoo_chart")
	require.Contains(t, buf.String(), "msg=hello")
}

func TestNew_FileOutputNeedsPath(t *testing.T) {
	t.Parallel()

	_, _, err := New(config.Log{Output: "file"}, nil)
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	require.Equal(t, slog.LevelInfo, ParseLevel(""))
}
