package converter

import (
	"log/slog"
	"strings"

	"github.com/nconklindev/docsheet/internal/types"
)

// rowExtractor walks the data rows of a validated table.
type rowExtractor struct {
	log *slog.Logger
}

// extract returns the non-blank data rows of tbl with their 1-based row
// index and the number of blank rows it skipped. A structurally broken row
// stops extraction for the table: the result is empty, the blank count is
// what had been seen so far, and the error is returned for the caller to
// record.
func (re *rowExtractor) extract(tbl types.SourceTable) ([]types.ExtractedRow, int, error) {
	var rows []types.ExtractedRow
	skipped := 0

	for i, row := range tbl.Rows {
		if i == 0 {
			continue
		}
		if row.Err != nil {
			re.log.Error("cannot extract data from table",
				slog.Int("table", tbl.Index+1),
				slog.Int("row", i+1),
				slog.Any("error", row.Err))
			return nil, skipped, row.Err
		}

		if isBlank(row.Cells) {
			re.log.Info("skipping empty row",
				slog.Int("table", tbl.Index+1),
				slog.Int("row", i+1))
			skipped++
			continue
		}

		cells := make([]string, len(row.Cells))
		copy(cells, row.Cells)
		rows = append(rows, types.ExtractedRow{Cells: cells, RowIndex: i + 1})
	}

	return rows, skipped, nil
}

// isBlank reports whether every cell is empty after trimming whitespace.
func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
