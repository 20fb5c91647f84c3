package types

import "time"

type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// TargetMode is the disposition of the output file for one run.
type TargetMode string

const (
	ModeCreate   TargetMode = "create"
	ModeAppend   TargetMode = "append"
	ModeMismatch TargetMode = "mismatch"
	ModeError    TargetMode = "error"
)

// ConversionResult is the only value a conversion hands back to its caller.
type ConversionResult struct {
	Status       Status     `json:"status" yaml:"status"`
	Message      string     `json:"message" yaml:"message"`
	Mode         TargetMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	Variant      string     `json:"variant" yaml:"variant"`
	SuccessCount int        `json:"success_count" yaml:"success_count"`
	ErrorCount   int        `json:"error_count" yaml:"error_count"`
	SkippedBlank int        `json:"skipped_blank" yaml:"skipped_blank"`
	SkippedEmpty int        `json:"skipped_empty" yaml:"skipped_empty"`
	SkippedCount int        `json:"skipped_count" yaml:"skipped_count"`
	SourcePath   string     `json:"source_path" yaml:"source_path"`
	TargetPath   string     `json:"target_path" yaml:"target_path"`
	LogPath      string     `json:"log_path,omitempty" yaml:"log_path,omitempty"`
	StartedAt    time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt   time.Time  `json:"finished_at" yaml:"finished_at"`
}

// SourceRow is one row of a document table. Err is set when the row's
// structure could not be resolved against the table grid.
type SourceRow struct {
	Cells []string
	Err   error
}

// SourceTable is a table read from the source document. Rows[0] is the header.
type SourceTable struct {
	Index int
	Rows  []SourceRow
}

// ExtractedRow is a non-blank data row with its 1-based position in the
// table, counting the header as row 1.
type ExtractedRow struct {
	Cells    []string
	RowIndex int
}

// MappedRow is positionally aligned to the target schema.
type MappedRow []string
