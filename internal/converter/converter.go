package converter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nconklindev/docsheet/internal/docx"
	"github.com/nconklindev/docsheet/internal/logging"
	"github.com/nconklindev/docsheet/internal/types"
)

// Source is an opened table-bearing document.
type Source interface {
	Tables() ([]types.SourceTable, error)
	Close() error
}

// SourceOpener opens the document at path.
type SourceOpener func(path string) (Source, error)

func openDocx(path string) (Source, error) {
	d, err := docx.Open(path)
	if err != nil {
		return nil, err
	}
	return d, nil
}

type Option func(*Converter)

// WithLogDir places the run log in dir instead of next to the target.
func WithLogDir(dir string) Option {
	return func(c *Converter) { c.logDir = dir }
}

func WithLogLevel(level slog.Level) Option {
	return func(c *Converter) { c.logLevel = level }
}

// WithLogger sends run events to l instead of a log file.
func WithLogger(l *slog.Logger) Option {
	return func(c *Converter) { c.logger = l }
}

func WithSourceOpener(open SourceOpener) Option {
	return func(c *Converter) { c.openSource = open }
}

// Converter runs one Word-to-sheet conversion. It is not safe to run two
// conversions against the same target at once.
type Converter struct {
	variant    *Variant
	sourcePath string
	target     Target
	logDir     string
	logLevel   slog.Level
	logger     *slog.Logger
	openSource SourceOpener
}

func New(v *Variant, sourcePath, targetPath string, opts ...Option) *Converter {
	c := &Converter{
		variant:    v,
		sourcePath: sourcePath,
		target:     v.OpenTarget(targetPath),
		logLevel:   slog.LevelInfo,
		openSource: openDocx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// runStats are the counters of one run.
type runStats struct {
	matchedTables int
	examined      int
	success       int
	errors        int
	skippedBlank  int
	skippedEmpty  int
}

func (s runStats) skipped() int {
	return s.skippedBlank + s.skippedEmpty
}

// Convert reads every table of the source document, maps the rows whose
// table carries the expected header and writes them to the target in one
// step. Problems are reported through the result, never as a panic or error.
func (c *Converter) Convert() types.ConversionResult {
	res := types.ConversionResult{
		Variant:    c.variant.Name,
		SourcePath: c.sourcePath,
		TargetPath: c.target.Path(),
		StartedAt:  time.Now(),
	}

	log, closeLog := c.openLog(&res)
	defer closeLog()

	log.Info("starting conversion",
		slog.String("source", c.sourcePath),
		slog.String("target", c.target.Path()),
		slog.String("variant", c.variant.Name))

	src, err := c.openSource(c.sourcePath)
	if err != nil {
		log.Error("cannot open Word document", slog.String("path", c.sourcePath), slog.Any("error", err))
		return c.finish(&res, log, runStats{}, types.StatusError,
			fmt.Sprintf("Word document not found or invalid: %q (%v)", c.sourcePath, err))
	}
	defer src.Close()

	tables, err := src.Tables()
	if err != nil {
		log.Error("cannot read Word document", slog.String("path", c.sourcePath), slog.Any("error", err))
		return c.finish(&res, log, runStats{}, types.StatusError,
			fmt.Sprintf("Unexpected error reading Word document %q: %v", c.sourcePath, err))
	}
	log.Info("opened Word document", slog.String("path", c.sourcePath), slog.Int("tables", len(tables)))

	res.Mode = ResolveTarget(c.target, c.variant, log)
	switch res.Mode {
	case types.ModeMismatch:
		return c.finish(&res, log, runStats{}, types.StatusError,
			fmt.Sprintf("Target header check failed (mode: %s): the header of %q does not match the expected columns. See the log for the first differing column.",
				res.Mode, c.target.Path()))
	case types.ModeError:
		return c.finish(&res, log, runStats{}, types.StatusError,
			fmt.Sprintf("Target header check failed (mode: %s): %q could not be read. It may be corrupted or not a valid %s file.",
				res.Mode, c.target.Path(), c.variant.Name))
	}

	batch, stats := c.process(tables, log)

	if len(batch) == 0 {
		status := types.StatusWarning
		if stats.errors > 0 {
			status = types.StatusError
		}
		return c.finish(&res, log, stats, status, emptyBatchMessage(stats))
	}

	if err := c.write(res.Mode, batch, log); err != nil {
		msg := fmt.Sprintf("Writing %q failed: %v. Nothing was written.", c.target.Path(), err)
		if errors.Is(err, fs.ErrPermission) {
			msg = fmt.Sprintf("Writing %q failed: permission denied or the file is in use. Nothing was written.", c.target.Path())
		}
		return c.finish(&res, log, stats, types.StatusError, msg)
	}

	return c.finish(&res, log, stats, types.StatusSuccess, c.successMessage(stats))
}

func (c *Converter) openLog(res *types.ConversionResult) (*slog.Logger, func()) {
	if c.logger != nil {
		return c.logger, func() {}
	}

	h, err := logging.Open(c.target.Path(), c.logDir, c.logLevel)
	if err != nil {
		h = logging.Stderr(c.logLevel)
		h.Logger.Error("failed to set up log file, logging to stderr",
			slog.String("intended_path", logging.PathFor(c.target.Path(), c.logDir)),
			slog.Any("error", err))
	}
	res.LogPath = h.Path
	return h.Logger, func() { h.Close() }
}

// process validates, extracts and maps every table in document order.
func (c *Converter) process(tables []types.SourceTable, log *slog.Logger) ([]types.MappedRow, runStats) {
	var (
		stats     runStats
		batch     []types.MappedRow
		validator = newHeaderValidator(c.variant, log)
		extractor = &rowExtractor{log: log}
		mapper    = NewMapper(c.variant, log)
	)

	for _, tbl := range tables {
		log.Info("processing table", slog.Int("table", tbl.Index+1))
		if !validator.matches(tbl) {
			log.Warn("skipping table due to header mismatch", slog.Int("table", tbl.Index+1))
			continue
		}

		stats.matchedTables++
		rows, blank, err := extractor.extract(tbl)
		stats.skippedBlank += blank
		if err != nil {
			continue
		}
		log.Info("extracted rows from table",
			slog.Int("table", tbl.Index+1),
			slog.Int("rows", len(rows)),
			slog.Int("skipped_empty", blank))

		for _, row := range rows {
			stats.examined++
			mapped, err := mapper.Map(tbl.Index, row)
			switch {
			case errors.Is(err, ErrRowEmpty):
				stats.skippedEmpty++
			case err != nil:
				stats.errors++
			default:
				stats.success++
				batch = append(batch, mapped)
				log.Debug("processed row", slog.Int("table", tbl.Index+1), slog.Int("row", row.RowIndex))
			}
		}
	}

	return batch, stats
}

func (c *Converter) write(mode types.TargetMode, batch []types.MappedRow, log *slog.Logger) error {
	path := c.target.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		log.Error("cannot create target directory", slog.String("path", path), slog.Any("error", err))
		return err
	}

	if mode == types.ModeCreate {
		log.Info("creating new target file", slog.String("path", path), slog.Any("header", c.variant.TargetSchema))
	} else {
		log.Info("appending to existing target file", slog.String("path", path))
	}

	if err := c.target.Write(mode, c.variant.TargetSchema, batch); err != nil {
		log.Error("write failed", slog.String("path", path), slog.Any("error", err))
		return err
	}
	log.Info("wrote rows", slog.String("path", path), slog.String("mode", string(mode)), slog.Int("rows", len(batch)))
	return nil
}

func (c *Converter) finish(res *types.ConversionResult, log *slog.Logger, stats runStats, status types.Status, msg string) types.ConversionResult {
	res.Status = status
	res.Message = msg
	res.SuccessCount = stats.success
	res.ErrorCount = stats.errors
	res.SkippedBlank = stats.skippedBlank
	res.SkippedEmpty = stats.skippedEmpty
	res.SkippedCount = stats.skipped()
	res.FinishedAt = time.Now()

	attrs := []any{
		slog.String("status", string(status)),
		slog.Int("success", stats.success),
		slog.Int("errors", stats.errors),
		slog.Int("skipped_blank", stats.skippedBlank),
		slog.Int("skipped_empty", stats.skippedEmpty),
	}
	switch status {
	case types.StatusSuccess:
		log.Info(msg, attrs...)
	case types.StatusWarning:
		log.Warn(msg, attrs...)
	default:
		log.Error(msg, attrs...)
	}
	return *res
}

func (c *Converter) successMessage(s runStats) string {
	if c.variant.ItemizeSkips {
		return fmt.Sprintf("Conversion complete: %d rows written, %d rows failed, %d blank rows skipped, %d rows empty after processing.",
			s.success, s.errors, s.skippedBlank, s.skippedEmpty)
	}
	return fmt.Sprintf("Conversion complete: %d rows written, %d rows failed, %d empty rows skipped.",
		s.success, s.errors, s.skipped())
}

// emptyBatchMessage explains why nothing was written, most specific cause first.
func emptyBatchMessage(s runStats) string {
	switch {
	case s.matchedTables == 0:
		return "No table in the Word document has the expected header. Nothing was written."
	case s.errors > 0:
		return fmt.Sprintf("Processed %d non-empty rows from %d matching tables, but %d rows failed and %d became empty after processing (%d rows skipped in total). Nothing was written; check the log.",
			s.examined, s.matchedTables, s.errors, s.skippedEmpty, s.skipped())
	case s.skippedEmpty > 0 && s.examined == s.skippedEmpty:
		return fmt.Sprintf("Processed %d non-empty rows from %d matching tables, but every row became empty after processing (%d rows skipped in total). Nothing was written.",
			s.examined, s.matchedTables, s.skipped())
	case s.skipped() > 0 && s.examined == 0:
		return fmt.Sprintf("Only blank rows were found in %d matching tables (%d rows skipped). Nothing was written.",
			s.matchedTables, s.skipped())
	default:
		return "No data was extracted from the Word document. Nothing was written."
	}
}
