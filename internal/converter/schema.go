package converter

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/nconklindev/docsheet/internal/types"
)

// Target is the output file of a conversion.
type Target interface {
	Path() string
	// ReadHeader returns the first row of the existing file. ok is false
	// when the file holds no rows at all.
	ReadHeader() (header []string, ok bool, err error)
	// Write stores rows in a single replace of the file. ModeCreate writes
	// header first; ModeAppend keeps the existing content and adds rows after it.
	Write(mode types.TargetMode, header []string, rows []types.MappedRow) error
}

// ResolveTarget inspects the target file and decides how the run may write
// to it. Header drift yields ModeMismatch; an unreadable or corrupt file
// yields ModeError.
func ResolveTarget(target Target, v *Variant, log *slog.Logger) types.TargetMode {
	path := target.Path()

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("target file not found, will create a new file", slog.String("path", path))
		return types.ModeCreate
	}
	if err != nil {
		log.Error("cannot inspect target file", slog.String("path", path), slog.Any("error", err))
		return types.ModeError
	}
	if info.IsDir() {
		log.Error("target path is a directory", slog.String("path", path))
		return types.ModeError
	}
	if info.Size() == 0 {
		log.Warn("target file exists but is empty, will treat as new file", slog.String("path", path))
		return types.ModeCreate
	}

	header, ok, err := target.ReadHeader()
	if err != nil {
		log.Error("error reading target file, it might be corrupted or not a valid "+v.Name+" file",
			slog.String("path", path), slog.Any("error", err))
		return types.ModeError
	}
	if !ok {
		log.Warn("target file exists but has no header row, will treat as new file", slog.String("path", path))
		return types.ModeCreate
	}

	idx := FirstDifference(v.TargetMatch, v.TargetSchema, header)
	if idx < 0 {
		log.Info("target file header matches, will append data",
			slog.String("path", path), slog.String("comparison", v.TargetMatch.String()))
		return types.ModeAppend
	}

	if len(header) != len(v.TargetSchema) {
		log.Error("target file header length mismatch",
			slog.String("path", path),
			slog.Int("expected_len", len(v.TargetSchema)),
			slog.Int("found_len", len(header)),
			slog.Any("expected", v.TargetSchema),
			slog.Any("found", header))
	} else {
		log.Error("target file header content mismatch",
			slog.String("path", path),
			slog.String("comparison", v.TargetMatch.String()),
			slog.Any("expected", v.TargetSchema),
			slog.Any("found", header))
	}
	log.Error("first header mismatch",
		slog.Int("index", idx),
		slog.String("expected", cellAt(v.TargetSchema, idx)),
		slog.String("found", cellAt(header, idx)))
	return types.ModeMismatch
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
