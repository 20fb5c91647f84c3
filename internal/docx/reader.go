// Package docx reads the tables of a Word (.docx) document.
//
// A .docx file is a ZIP archive whose body lives in word/document.xml. The
// document XML is stream-parsed and every top-level table is returned as a
// grid of cell texts in document order. Merged cells are expanded so that
// each row has one entry per grid column: a horizontally merged cell
// (gridSpan) repeats its text across the columns it spans, and a vertical
// merge continuation (vMerge) repeats the text of the cell above it. Grid
// columns a row skips (gridBefore, gridAfter) read as empty cells. Text
// boxes and alternate content anchored in a cell are not part of its text.
package docx

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nconklindev/docsheet/internal/types"
)

const documentPart = "word/document.xml"

var (
	ErrNotDocx      = errors.New("not a docx archive")
	ErrNoDocument   = errors.New(documentPart + " not found")
	ErrMalformedXML = errors.New("malformed document xml")
)

// Document is an open .docx archive.
type Document struct {
	path string
	zr   *zip.ReadCloser
	part *zip.File
}

// Open opens a .docx file and checks that it carries a main document part.
func Open(path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotDocx, path, err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		zr.Close()
		return nil, fmt.Errorf("%w in %s", ErrNoDocument, path)
	}

	return &Document{path: path, zr: zr, part: part}, nil
}

// Path returns the file the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// Tables parses the document body and returns its top-level tables.
func (d *Document) Tables() ([]types.SourceTable, error) {
	if d.zr == nil {
		return nil, fmt.Errorf("reading tables of %s: document is closed", d.path)
	}

	rc, err := d.part.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", documentPart, err)
	}
	defer rc.Close()

	return parseTables(rc)
}

// Close releases the underlying archive.
func (d *Document) Close() error {
	if d.zr == nil {
		return nil
	}
	err := d.zr.Close()
	d.zr = nil
	return err
}

// ---------------------------------------------------------------------------
// Streaming table parser
// ---------------------------------------------------------------------------

type cellState struct {
	span   int
	vMerge string // "", "restart" or "continue"
	paras  []string
	para   strings.Builder
	inPara bool
	inRun  bool
	inText bool
}

type tableState struct {
	grid   int
	before int
	after  int
	rows   []types.SourceRow
	prev  []string
	cells []*cellState
	cell  *cellState
	inRow bool
}

type tableParser struct {
	depth  int
	skip   int
	table  *tableState
	tables []types.SourceTable
}

func parseTables(r io.Reader) ([]types.SourceTable, error) {
	dec := xml.NewDecoder(r)
	p := &tableParser{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.handleStart(t)
		case xml.EndElement:
			p.handleEnd(t.Name.Local)
		case xml.CharData:
			p.handleText(t)
		}
	}

	return p.tables, nil
}

// skipped reports whether an element's subtree is left out of cell text.
func skipped(local string) bool {
	return local == "txbxContent" || local == "AlternateContent"
}

func (p *tableParser) handleStart(t xml.StartElement) {
	if skipped(t.Name.Local) {
		p.skip++
		return
	}
	if p.skip > 0 {
		return
	}
	if t.Name.Local == "tbl" {
		p.depth++
		if p.depth == 1 {
			p.table = &tableState{}
		}
		return
	}
	// Nested tables do not contribute to the outer table's cells.
	if p.depth != 1 {
		return
	}

	tbl := p.table
	c := tbl.cell

	switch t.Name.Local {
	case "gridCol":
		if !tbl.inRow {
			tbl.grid++
		}
	case "tr":
		tbl.inRow = true
		tbl.cells = nil
		tbl.before, tbl.after = 0, 0
	case "gridBefore":
		if tbl.inRow && tbl.cell == nil {
			tbl.before = gridVal(t)
		}
	case "gridAfter":
		if tbl.inRow && tbl.cell == nil {
			tbl.after = gridVal(t)
		}
	case "tc":
		if tbl.inRow {
			tbl.cell = &cellState{span: 1}
		}
	case "gridSpan":
		if c != nil {
			if n, err := strconv.Atoi(attrVal(t, "val")); err == nil && n > 1 {
				c.span = n
			}
		}
	case "vMerge":
		if c != nil {
			if attrVal(t, "val") == "restart" {
				c.vMerge = "restart"
			} else {
				c.vMerge = "continue"
			}
		}
	case "p":
		if c != nil {
			c.inPara = true
			c.para.Reset()
		}
	case "r":
		if c != nil && c.inPara {
			c.inRun = true
		}
	case "t":
		if c != nil && c.inRun {
			c.inText = true
		}
	case "tab":
		if c != nil && c.inRun {
			c.para.WriteByte('\t')
		}
	case "br", "cr":
		if c != nil && c.inRun {
			c.para.WriteByte('\n')
		}
	}
}

func (p *tableParser) handleEnd(local string) {
	if skipped(local) {
		if p.skip > 0 {
			p.skip--
		}
		return
	}
	if p.skip > 0 {
		return
	}
	if local == "tbl" {
		if p.depth == 1 {
			p.tables = append(p.tables, types.SourceTable{
				Index: len(p.tables),
				Rows:  p.table.rows,
			})
			p.table = nil
		}
		if p.depth > 0 {
			p.depth--
		}
		return
	}
	if p.depth != 1 {
		return
	}

	tbl := p.table
	c := tbl.cell

	switch local {
	case "t":
		if c != nil {
			c.inText = false
		}
	case "r":
		if c != nil {
			c.inRun = false
		}
	case "p":
		if c != nil && c.inPara {
			c.paras = append(c.paras, c.para.String())
			c.inPara = false
		}
	case "tc":
		if c != nil {
			tbl.cells = append(tbl.cells, c)
			tbl.cell = nil
		}
	case "tr":
		if tbl.inRow {
			tbl.rows = append(tbl.rows, tbl.finishRow())
			tbl.inRow = false
		}
	}
}

func (p *tableParser) handleText(data xml.CharData) {
	if p.skip > 0 || p.depth != 1 || p.table.cell == nil {
		return
	}
	if c := p.table.cell; c.inText {
		c.para.Write(data)
	}
}

// finishRow expands the collected cells onto the table grid.
func (tbl *tableState) finishRow() types.SourceRow {
	var cells []string
	if tbl.before > 0 {
		cells = make([]string, tbl.before)
	}
	for _, c := range tbl.cells {
		text := strings.Join(c.paras, "\n")
		for i := 0; i < c.span; i++ {
			col := len(cells)
			if c.vMerge == "continue" && col < len(tbl.prev) {
				cells = append(cells, tbl.prev[col])
				continue
			}
			cells = append(cells, text)
		}
	}
	for i := 0; i < tbl.after; i++ {
		cells = append(cells, "")
	}

	row := types.SourceRow{Cells: cells}
	if tbl.grid > 0 && len(cells) > tbl.grid {
		row.Err = fmt.Errorf("row %d spans %d grid columns but the table grid has %d",
			len(tbl.rows)+1, len(cells), tbl.grid)
	}

	tbl.prev = cells
	tbl.cells = nil
	return row
}

func gridVal(t xml.StartElement) int {
	n, err := strconv.Atoi(attrVal(t, "val"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func attrVal(t xml.StartElement, localName string) string {
	for _, a := range t.Attr {
		if a.Name.Local == localName {
			return a.Value
		}
	}
	return ""
}
