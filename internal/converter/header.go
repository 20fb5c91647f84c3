package converter

import (
	"log/slog"
	"strings"

	"golang.org/x/text/width"

	"github.com/nconklindev/docsheet/internal/types"
)

// MatchMode selects how two header rows are compared.
type MatchMode int

const (
	// MatchStrict requires exact, ordered string equality.
	MatchStrict MatchMode = iota
	// MatchLoose compares normalized, case-folded cells.
	MatchLoose
)

func (m MatchMode) String() string {
	if m == MatchLoose {
		return "loose"
	}
	return "strict"
}

// The ideographic full stop has no full-width pair, so width folding alone
// would not turn it into a period.
var punctuation = strings.NewReplacer(
	"（", "(",
	"）", ")",
	"：", ":",
	"，", ",",
	"。", ".",
	"｡", ".",
)

// Normalizer canonicalizes header cell text for comparison.
type Normalizer struct {
	FoldCase bool
}

// Normalize trims s, folds full-width punctuation to half-width and removes
// every whitespace run, including the ideographic space.
func (n Normalizer) Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = punctuation.Replace(s)
	s = width.Narrow.String(s)
	s = strings.Join(strings.Fields(s), "")
	if n.FoldCase {
		s = strings.ToLower(s)
	}
	return s
}

// EqualHeader reports whether a and b are the same header cell under mode.
func EqualHeader(mode MatchMode, a, b string) bool {
	if mode == MatchStrict {
		return a == b
	}
	loose := Normalizer{FoldCase: true}
	return loose.Normalize(a) == loose.Normalize(b)
}

// FirstDifference returns the index of the first column where found departs
// from expected, or -1 when both rows are equal under mode. When one row is
// a prefix of the other the index is the length of the shorter row.
func FirstDifference(mode MatchMode, expected, found []string) int {
	common := min(len(expected), len(found))
	for i := 0; i < common; i++ {
		if !EqualHeader(mode, expected[i], found[i]) {
			return i
		}
	}
	if len(expected) != len(found) {
		return common
	}
	return -1
}

// headerValidator decides whether a document table carries the source schema.
type headerValidator struct {
	normalizer Normalizer
	expected   []string
	log        *slog.Logger
}

func newHeaderValidator(v *Variant, log *slog.Logger) *headerValidator {
	expected := make([]string, len(v.SourceSchema))
	for i, h := range v.SourceSchema {
		expected[i] = v.Normalizer.Normalize(h)
	}
	return &headerValidator{normalizer: v.Normalizer, expected: expected, log: log}
}

func (hv *headerValidator) matches(tbl types.SourceTable) bool {
	if len(tbl.Rows) == 0 {
		hv.log.Warn("table has no rows", slog.Int("table", tbl.Index+1))
		return false
	}

	header := tbl.Rows[0]
	if header.Err != nil {
		hv.log.Error("cannot read table header, the table may be malformed",
			slog.Int("table", tbl.Index+1), slog.Any("error", header.Err))
		return false
	}

	found := make([]string, len(header.Cells))
	for i, cell := range header.Cells {
		found[i] = hv.normalizer.Normalize(cell)
	}

	if len(found) != len(hv.expected) {
		hv.log.Warn("table header length mismatch",
			slog.Int("table", tbl.Index+1),
			slog.Int("expected_len", len(hv.expected)),
			slog.Int("found_len", len(found)),
			slog.Any("expected", hv.expected),
			slog.Any("found", found))
		return false
	}

	for i := range found {
		if found[i] != hv.expected[i] {
			hv.log.Warn("table header content mismatch",
				slog.Int("table", tbl.Index+1),
				slog.Any("expected", hv.expected),
				slog.Any("found", found))
			return false
		}
	}
	return true
}
