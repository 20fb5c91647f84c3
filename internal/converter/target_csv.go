package converter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/nconklindev/docsheet/internal/types"
)

// CSVTarget stores rows in a UTF-8 CSV file. New files start with a
// byte-order mark so spreadsheet importers detect the encoding.
type CSVTarget struct {
	path string
}

func NewCSVTarget(path string) *CSVTarget {
	return &CSVTarget{path: path}
}

func (c *CSVTarget) Path() string {
	return c.path
}

func (c *CSVTarget) open() (*os.File, *csv.Reader, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, nil, err
	}
	// BOMOverride strips a leading UTF-8 byte-order mark if one is present.
	r := csv.NewReader(transform.NewReader(f, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	r.FieldsPerRecord = -1
	return f, r, nil
}

// ReadHeader returns the first record of the file.
func (c *CSVTarget) ReadHeader() ([]string, bool, error) {
	f, r, err := c.open()
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	header, err := r.Read()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return header, true, nil
}

func (c *CSVTarget) Write(mode types.TargetMode, header []string, rows []types.MappedRow) error {
	var write func(w io.Writer) error

	switch mode {
	case types.ModeCreate:
		write = func(w io.Writer) error {
			bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
			if err := writeRecords(bw, header, rows); err != nil {
				return err
			}
			return bw.Close()
		}
	case types.ModeAppend:
		write = func(w io.Writer) error {
			if err := c.copyExisting(w); err != nil {
				return err
			}
			return writeRecords(w, nil, rows)
		}
	default:
		return writeErr(c.path, fmt.Errorf("cannot write in mode %q", mode))
	}

	if err := replaceFile(c.path, write); err != nil {
		return writeErr(c.path, err)
	}
	return nil
}

// copyExisting copies the current file into w and terminates its last line.
func (c *CSVTarget) copyExisting(w io.Writer) error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(w, "\r\n")
	}
	return err
}

func writeRecords(w io.Writer, header []string, rows []types.MappedRow) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	if header != nil {
		if err := cw.Write(header); err != nil {
			return err
		}
	}
	for _, r := range rows {
		if err := cw.Write(r); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
