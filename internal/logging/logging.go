// Package logging opens the per-run conversion log.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

const suffix = "_conversion.log"

// Handle is a logger writing to one log file for the lifetime of a run.
type Handle struct {
	Logger *slog.Logger
	Path   string
	file   *os.File
}

// PathFor returns the log file used for targetPath: <base>_conversion.log
// next to the target, or inside logDir when one is given.
func PathFor(targetPath, logDir string) string {
	base := strings.TrimSuffix(filepath.Base(targetPath), filepath.Ext(targetPath))
	dir := logDir
	if dir == "" {
		dir = filepath.Dir(targetPath)
	}
	return filepath.Join(dir, base+suffix)
}

// Open appends to the log file for targetPath, creating its directory.
func Open(targetPath, logDir string, level slog.Level) (*Handle, error) {
	path := PathFor(targetPath, logDir)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return &Handle{
		Logger: New(f, level),
		Path:   path,
		file:   f,
	}, nil
}

// New returns a text logger on w. Every line carries a timestamp and level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Stderr returns a handle that logs to standard error and owns no file.
func Stderr(level slog.Level) *Handle {
	return &Handle{Logger: New(os.Stderr, level)}
}

// Close releases the log file, if any.
func (h *Handle) Close() error {
	if h == nil || h.file == nil {
		return nil
	}
	err := h.file.Close()
	h.file = nil
	return err
}
