package converter

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Word-side header every source table must carry.
var sourceSchema = []string{
	"序号",
	"资料名称",
	"资料来源",
	"提交人",
	"接收人",
	"交接日期",
	"存放位置",
	"备注",
}

// Target header of the document management import sheet. Columns without a
// source field are left blank for the importing system to fill.
var targetSchema = []string{
	"文档 ID",
	"文档名称",
	"文档类型",
	"来源部门",
	"提交人",
	"接收人",
	"签收(章)人",
	"交接日期",
	"保管位置",
	"备注",
	"创建人",
	"创建时间",
	"最后修改人",
	"最后修改时间",
}

type FieldKind int

const (
	FieldText FieldKind = iota
	FieldDate
)

// FieldRule copies source column Source into target column Target.
type FieldRule struct {
	Target int
	Source int
	Kind   FieldKind
}

var handoverFields = []FieldRule{
	{Target: 1, Source: 1, Kind: FieldText}, // 文档名称 <- 资料名称
	{Target: 3, Source: 2, Kind: FieldText}, // 来源部门 <- 资料来源
	{Target: 4, Source: 3, Kind: FieldText}, // 提交人
	{Target: 5, Source: 4, Kind: FieldText}, // 接收人
	{Target: 7, Source: 5, Kind: FieldDate}, // 交接日期
	{Target: 8, Source: 6, Kind: FieldText}, // 保管位置 <- 存放位置
	{Target: 9, Source: 7, Kind: FieldText}, // 备注
}

// DatePolicy decides what happens to a row whose date cannot be parsed.
type DatePolicy int

const (
	// BlankInvalidDate keeps the row and leaves the date column empty.
	BlankInvalidDate DatePolicy = iota
	// RejectInvalidDate drops the row and counts it as an error.
	RejectInvalidDate
)

// Variant bundles everything that differs between output formats.
type Variant struct {
	Name         string
	SourceSchema []string
	TargetSchema []string
	Fields       []FieldRule
	Normalizer   Normalizer
	TargetMatch  MatchMode
	DatePolicy   DatePolicy
	// ItemizeSkips reports blank and empty-after-processing rows separately
	// in the final message instead of as one total.
	ItemizeSkips bool
	OpenTarget   func(path string) Target
}

const (
	VariantExcel = "excel"
	VariantCSV   = "csv"
)

// ExcelVariant writes .xlsx workbooks. Target headers must match exactly and
// unparseable dates are blanked.
func ExcelVariant() *Variant {
	return &Variant{
		Name:         VariantExcel,
		SourceSchema: sourceSchema,
		TargetSchema: targetSchema,
		Fields:       handoverFields,
		Normalizer:   Normalizer{},
		TargetMatch:  MatchStrict,
		DatePolicy:   BlankInvalidDate,
		OpenTarget:   func(path string) Target { return NewXLSXTarget(path) },
	}
}

// CSVVariant writes UTF-8 CSV with a byte-order mark. Headers compare
// case-insensitively and rows with unparseable dates are rejected.
func CSVVariant() *Variant {
	return &Variant{
		Name:         VariantCSV,
		SourceSchema: sourceSchema,
		TargetSchema: targetSchema,
		Fields:       handoverFields,
		Normalizer:   Normalizer{FoldCase: true},
		TargetMatch:  MatchLoose,
		DatePolicy:   RejectInvalidDate,
		ItemizeSkips: true,
		OpenTarget:   func(path string) Target { return NewCSVTarget(path) },
	}
}

// VariantFor returns the named variant. An empty name picks one from the
// target extension: .csv selects csv, anything else excel.
func VariantFor(name, targetPath string) (*Variant, error) {
	if name == "" {
		if strings.EqualFold(filepath.Ext(targetPath), ".csv") {
			name = VariantCSV
		} else {
			name = VariantExcel
		}
	}

	switch strings.ToLower(name) {
	case VariantExcel, "xlsx":
		return ExcelVariant(), nil
	case VariantCSV:
		return CSVVariant(), nil
	default:
		return nil, fmt.Errorf("unsupported variant %q (want %q or %q)", name, VariantExcel, VariantCSV)
	}
}
