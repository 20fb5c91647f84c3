// Package testutil builds on-disk fixtures for package tests.
package testutil

import (
	"archive/zip"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// SourceHeader is the header row Word tables are expected to carry.
var SourceHeader = []string{"序号", "资料名称", "资料来源", "提交人", "接收人", "交接日期", "存放位置", "备注"}

// WriteDocxBody writes a .docx archive at dir/name whose document body is
// the given raw WordprocessingML.
func WriteDocxBody(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	parts := []struct{ name, content string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", packageRels},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>` + body + `</w:body>
</w:document>`},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", p.name, err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			t.Fatalf("failed to write %s: %v", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish archive: %v", err)
	}

	return path
}

// WriteDocx writes a .docx archive holding one table per entry of tables,
// each separated by a paragraph.
func WriteDocx(t *testing.T, dir, name string, tables ...[][]string) string {
	t.Helper()

	var body strings.Builder
	for _, tbl := range tables {
		body.WriteString(`<w:p><w:r><w:t>Handover list</w:t></w:r></w:p>`)
		body.WriteString(TableXML(tbl))
	}
	return WriteDocxBody(t, dir, name, body.String())
}

// TableXML renders rows as a <w:tbl> element with one paragraph per cell.
func TableXML(rows [][]string) string {
	var sb strings.Builder
	sb.WriteString("<w:tbl>")
	for _, row := range rows {
		sb.WriteString("<w:tr>")
		for _, cell := range row {
			sb.WriteString("<w:tc><w:p><w:r><w:t xml:space=\"preserve\">")
			xml.EscapeText(&sb, []byte(cell))
			sb.WriteString("</w:t></w:r></w:p></w:tc>")
		}
		sb.WriteString("</w:tr>")
	}
	sb.WriteString("</w:tbl>")
	return sb.String()
}

// Table prepends the expected source header to rows.
func Table(rows ...[]string) [][]string {
	return append([][]string{SourceHeader}, rows...)
}
