package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFor(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		logDir   string
		expected string
	}{
		{"Next to target", "/data/out/records.xlsx", "", "/data/out/records_conversion.log"},
		{"CSV target", "/data/out/records.csv", "", "/data/out/records_conversion.log"},
		{"No extension", "/data/out/records", "", "/data/out/records_conversion.log"},
		{"Log dir", "/data/out/records.xlsx", "/var/log/docsheet", "/var/log/docsheet/records_conversion.log"},
		{"Relative target", "records.xlsx", "", "records_conversion.log"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.expected), PathFor(filepath.FromSlash(tt.target), filepath.FromSlash(tt.logDir)))
		})
	}
}

func TestOpenAppends(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "out", "records.xlsx")

	for _, msg := range []string{"first run", "second run"} {
		h, err := Open(target, "", slog.LevelInfo)
		require.NoError(t, err)
		h.Logger.Info(msg, slog.Int("rows", 3))
		h.Logger.Debug("hidden")
		require.NoError(t, h.Close())
		require.NoError(t, h.Close())
	}

	data, err := os.ReadFile(filepath.Join(dir, "out", "records_conversion.log"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "level=INFO")
	assert.Contains(t, lines[0], `msg="first run"`)
	assert.Contains(t, lines[0], "time=")
	assert.Contains(t, lines[1], `msg="second run"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestOpenFailsOnUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Open(filepath.Join(dir, "records.xlsx"), blocker, slog.LevelInfo)
	assert.Error(t, err)
}

func TestStderrHandle(t *testing.T) {
	h := Stderr(slog.LevelInfo)
	assert.Empty(t, h.Path)
	assert.NotNil(t, h.Logger)
	assert.NoError(t, h.Close())
}
