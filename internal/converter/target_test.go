package converter

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nconklindev/docsheet/internal/types"
)

func batch(names ...string) []types.MappedRow {
	rows := make([]types.MappedRow, len(names))
	for i, n := range names {
		row := make(types.MappedRow, len(targetSchema))
		row[1] = n
		row[7] = "2023-10-26"
		rows[i] = row
	}
	return rows
}

func TestXLSXTarget_CreateThenAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	target := NewXLSXTarget(path)

	require.NoError(t, target.Write(types.ModeCreate, targetSchema, batch("合同", "图纸")))

	header, ok, err := target.ReadHeader()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, targetSchema, header)

	n, err := target.rowCount()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, target.Write(types.ModeAppend, targetSchema, batch("报告")))

	n, err = target.rowCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	require.NoError(t, err)
	assert.Equal(t, "报告", rows[3][1])
	assert.Equal(t, "2023-10-26", rows[3][7])
}

func TestXLSXTarget_AppendKeepsOtherContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := make([]interface{}, len(targetSchema))
	for i, h := range targetSchema {
		header[i] = h
	}
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	require.NoError(t, f.SetCellValue(sheet, "B2", "existing"))
	_, err := f.NewSheet("Notes")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Notes", "A1", "keep me"))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	require.NoError(t, NewXLSXTarget(path).Write(types.ModeAppend, targetSchema, batch("新增")))

	got, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer got.Close()

	v, err := got.GetCellValue(sheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "existing", v)
	v, err = got.GetCellValue(sheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "新增", v)
	v, err = got.GetCellValue("Notes", "A1")
	require.NoError(t, err)
	assert.Equal(t, "keep me", v)
}

func TestXLSXTarget_ReadHeaderCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

	_, _, err := NewXLSXTarget(path).ReadHeader()
	assert.Error(t, err)
}

func TestCSVTarget_CreateWritesBOMAndCRLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	target := NewCSVTarget(path)

	require.NoError(t, target.Write(types.ModeCreate, targetSchema, batch("合同")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\xef\xbb\xbf文档 ID,")), "file should start with a BOM and the header")
	assert.True(t, bytes.HasSuffix(data, []byte("\r\n")))
	assert.Equal(t, 2, bytes.Count(data, []byte("\r\n")))

	header, ok, err := target.ReadHeader()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, targetSchema, header, "BOM must not leak into the first header cell")
}

func TestCSVTarget_AppendDoesNotRepeatHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	target := NewCSVTarget(path)

	require.NoError(t, target.Write(types.ModeCreate, targetSchema, batch("合同", "图纸")))
	require.NoError(t, target.Write(types.ModeAppend, targetSchema, batch("报告")))

	n, err := target.rowCount()
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, bytes.Count(data, []byte("\xef\xbb\xbf")))
	assert.Equal(t, 1, bytes.Count(data, []byte("最后修改时间")))
}

func TestCSVTarget_AppendTerminatesLastLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\r\n1,2"), 0o644))

	require.NoError(t, NewCSVTarget(path).Write(types.ModeAppend, nil, []types.MappedRow{{"3", "4"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\r\n1,2\r\n3,4\r\n", string(data))
}

func TestCSVTarget_ReadHeaderEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbf"), 0o644))

	header, ok, err := NewCSVTarget(path).ReadHeader()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, header)
}

func TestWrite_RejectsResolveOnlyModes(t *testing.T) {
	dir := t.TempDir()
	for _, target := range []Target{NewXLSXTarget(filepath.Join(dir, "a.xlsx")), NewCSVTarget(filepath.Join(dir, "a.csv"))} {
		err := target.Write(types.ModeMismatch, targetSchema, batch("合同"))
		assert.ErrorIs(t, err, ErrTargetWrite)
		assert.NoFileExists(t, target.Path())
	}
}

func TestReplaceFile_KeepsOldContentOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	err := replaceFile(path, func(w io.Writer) error {
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be removed")
}

func TestReplaceFile_PreservesPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, replaceFile(path, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

// rowCount counts the rows on the active sheet, header included.
func (x *XLSXTarget) rowCount() (int, error) {
	f, err := x.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// rowCount counts the records in the file, header included.
func (c *CSVTarget) rowCount() (int, error) {
	f, r, err := c.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	records, err := r.ReadAll()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
