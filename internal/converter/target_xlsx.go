package converter

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/docsheet/internal/types"
)

// XLSXTarget stores rows on the active sheet of an .xlsx workbook.
type XLSXTarget struct {
	path string
}

func NewXLSXTarget(path string) *XLSXTarget {
	return &XLSXTarget{path: path}
}

func (x *XLSXTarget) Path() string {
	return x.path
}

// open reads the workbook through OpenReader so the file keeps no path and
// WriteTo accepts targets without an .xlsx extension.
func (x *XLSXTarget) open() (*excelize.File, error) {
	r, err := os.Open(x.path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return excelize.OpenReader(r)
}

// ReadHeader returns the first row of the active sheet.
func (x *XLSXTarget) ReadHeader() ([]string, bool, error) {
	f, err := x.open()
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	sheetName := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.Rows(sheetName)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, false, rows.Error()
	}
	header, err := rows.Columns()
	if err != nil {
		return nil, false, err
	}
	return header, true, nil
}

func (x *XLSXTarget) Write(mode types.TargetMode, header []string, rows []types.MappedRow) error {
	var (
		f    *excelize.File
		next int
		err  error
	)

	switch mode {
	case types.ModeCreate:
		f = excelize.NewFile()
		next = 1
	case types.ModeAppend:
		f, err = x.open()
		if err != nil {
			return writeErr(x.path, err)
		}
	default:
		return writeErr(x.path, fmt.Errorf("cannot write in mode %q", mode))
	}
	defer f.Close()

	sheetName := f.GetSheetName(f.GetActiveSheetIndex())
	if mode == types.ModeAppend {
		existing, err := f.GetRows(sheetName)
		if err != nil {
			return writeErr(x.path, err)
		}
		next = len(existing) + 1
	}

	setRow := func(values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, next)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		next++
		return f.SetSheetRow(sheetName, cell, &row)
	}

	if mode == types.ModeCreate {
		if err := setRow(header); err != nil {
			return writeErr(x.path, err)
		}
	}
	for _, r := range rows {
		if err := setRow(r); err != nil {
			return writeErr(x.path, err)
		}
	}

	err = replaceFile(x.path, func(w io.Writer) error {
		_, err := f.WriteTo(w)
		return err
	})
	if err != nil {
		return writeErr(x.path, err)
	}
	return nil
}
