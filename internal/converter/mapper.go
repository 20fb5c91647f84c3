package converter

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nconklindev/docsheet/internal/types"
)

var (
	// ErrDateRejected marks a row dropped because its date could not be parsed.
	ErrDateRejected = errors.New("unparseable date")
	// ErrRowEmpty marks a row whose mapped fields are all blank.
	ErrRowEmpty = errors.New("row is empty after processing")
)

// Mapper turns extracted source rows into target rows.
type Mapper struct {
	variant *Variant
	log     *slog.Logger
}

func NewMapper(v *Variant, log *slog.Logger) *Mapper {
	return &Mapper{variant: v, log: log}
}

// Map builds the target row for one extracted row of table tableIndex.
// Short rows are padded and long rows truncated to the source schema width.
// The error is ErrRowEmpty when nothing survives mapping, ErrDateRejected
// when the variant rejects an unparseable date, or a description of an
// unexpected failure.
func (m *Mapper) Map(tableIndex int, row types.ExtractedRow) (out types.MappedRow, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("unexpected error processing row %d in table %d: %v", row.RowIndex, tableIndex+1, r)
			m.log.Error("row processing failed",
				slog.Int("table", tableIndex+1),
				slog.Int("row", row.RowIndex),
				slog.Any("data", row.Cells),
				slog.Any("error", r))
		}
	}()

	cells := m.reconcile(tableIndex, row)

	out = make(types.MappedRow, len(m.variant.TargetSchema))
	for _, f := range m.variant.Fields {
		value := strings.TrimSpace(cells[f.Source])
		if f.Kind == FieldDate {
			value, err = m.date(tableIndex, row, value)
			if err != nil {
				return nil, err
			}
		}
		out[f.Target] = value
	}

	if isBlank(out) {
		m.log.Warn("skipping row that is empty after processing",
			slog.Int("table", tableIndex+1),
			slog.Int("row", row.RowIndex),
			slog.Any("data", row.Cells))
		return nil, ErrRowEmpty
	}
	return out, nil
}

func (m *Mapper) reconcile(tableIndex int, row types.ExtractedRow) []string {
	want := len(m.variant.SourceSchema)
	cells := row.Cells

	switch {
	case len(cells) < want:
		m.log.Warn("row has fewer cells than expected, padding with empty strings",
			slog.Int("table", tableIndex+1),
			slog.Int("row", row.RowIndex),
			slog.Int("found", len(cells)),
			slog.Int("expected", want),
			slog.Any("data", cells))
		padded := make([]string, want)
		copy(padded, cells)
		return padded
	case len(cells) > want:
		m.log.Warn("row has more cells than expected, truncating extra cells",
			slog.Int("table", tableIndex+1),
			slog.Int("row", row.RowIndex),
			slog.Int("found", len(cells)),
			slog.Int("expected", want),
			slog.Any("data", cells))
		return cells[:want]
	}
	return cells
}

// date normalizes a date cell. An empty cell is a parse failure like any
// other and follows the variant's DatePolicy.
func (m *Mapper) date(tableIndex int, row types.ExtractedRow, value string) (string, error) {
	if t, ok := ParseDate(value); ok {
		return FormatDate(t), nil
	}

	if m.variant.DatePolicy == RejectInvalidDate {
		m.log.Error("could not parse date, rejecting row",
			slog.String("value", value),
			slog.Int("table", tableIndex+1),
			slog.Int("row", row.RowIndex),
			slog.Any("data", row.Cells))
		return "", fmt.Errorf("%w %q in table %d, row %d", ErrDateRejected, value, tableIndex+1, row.RowIndex)
	}

	m.log.Warn("could not parse date, leaving date field empty",
		slog.String("value", value),
		slog.Int("table", tableIndex+1),
		slog.Int("row", row.RowIndex))
	return "", nil
}
