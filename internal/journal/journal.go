// Package journal keeps a SQLite history of conversion runs.
//
// Usage:
//
//	j, err := journal.Open(cfg.Journal.Path)
//	defer j.Close()
//	id, err := j.Record(ctx, result)
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nconklindev/docsheet/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	started_at    TEXT NOT NULL,
	finished_at   TEXT NOT NULL,
	variant       TEXT NOT NULL,
	source_path   TEXT NOT NULL,
	target_path   TEXT NOT NULL,
	log_path      TEXT NOT NULL DEFAULT '',
	mode          TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	success_count INTEGER NOT NULL,
	error_count   INTEGER NOT NULL,
	skipped_blank INTEGER NOT NULL,
	skipped_empty INTEGER NOT NULL,
	message       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Entry is one recorded run.
type Entry struct {
	types.ConversionResult `yaml:",inline"`

	ID string `json:"id" yaml:"id"`
}

type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path. ":memory:" opens a
// private in-memory journal.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("journal: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open: %w", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record stores res and returns the id it was filed under.
func (j *Journal) Record(ctx context.Context, res types.ConversionResult) (string, error) {
	id := uuid.Must(uuid.NewV7()).String()

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, finished_at, variant, source_path, target_path, log_path,
			mode, status, success_count, error_count, skipped_blank, skipped_empty, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		res.StartedAt.UTC().Format(timeLayout),
		res.FinishedAt.UTC().Format(timeLayout),
		res.Variant, res.SourcePath, res.TargetPath, res.LogPath,
		string(res.Mode), string(res.Status),
		res.SuccessCount, res.ErrorCount, res.SkippedBlank, res.SkippedEmpty,
		res.Message,
	)
	if err != nil {
		return "", fmt.Errorf("journal: record: %w", err)
	}
	return id, nil
}

// Recent returns up to limit runs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, variant, source_path, target_path, log_path,
			mode, status, success_count, error_count, skipped_blank, skipped_empty, message
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: query: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e                 Entry
			started, finished string
			mode, status      string
		)
		if err := rows.Scan(&e.ID, &started, &finished, &e.Variant, &e.SourcePath, &e.TargetPath, &e.LogPath,
			&mode, &status, &e.SuccessCount, &e.ErrorCount, &e.SkippedBlank, &e.SkippedEmpty, &e.Message); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		e.Mode = types.TargetMode(mode)
		e.Status = types.Status(status)
		e.SkippedCount = e.SkippedBlank + e.SkippedEmpty
		if e.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("journal: run %s: %w", e.ID, err)
		}
		if e.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("journal: run %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	err := j.db.Close()
	j.db = nil
	return err
}
