package xlsxio

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

type ReaderOptions struct {
	Sheet      string   // empty = first sheet
	HasHeader  bool
	SampleRows int      // for inference; default 100
	NullValues []string // cells equal to a marker read as null
}

// ReadAll loads one sheet of an Excel workbook into a Frame. Cell
// values come back as formatted strings, so kinds are inferred the same
// way as for CSV input.
func ReadAll(path string, opt ReaderOptions) (*tm.Frame, error) {
	wb, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = wb.Close() }()

	sheet := opt.Sheet
	if sheet == "" {
		list := wb.GetSheetList()
		if len(list) == 0 {
			return nil, fmt.Errorf("xlsx: workbook has no sheets")
		}
		sheet = list[0]
	}
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("xlsx: sheet %s is empty", sheet)
	}

	nulls := make(map[string]struct{}, len(opt.NullValues)+1)
	nulls[""] = struct{}{}
	for _, m := range opt.NullValues {
		nulls[m] = struct{}{}
	}

	var names []string
	data := rows
	if opt.HasHeader {
		names = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			names[i] = strings.TrimSpace(h)
		}
		data = rows[1:]
	} else {
		width := 0
		for _, row := range rows {
			if len(row) > width {
				width = len(row)
			}
		}
		names = make([]string, width)
		for i := range names {
			names[i] = "col_" + strconv.Itoa(i)
		}
	}

	max := opt.SampleRows
	if max <= 0 {
		max = 100
	}
	sample := data
	if len(sample) > max {
		sample = sample[:max]
	}
	kinds := inferKinds(sample, len(names), nulls)
	schema := tm.Schema{Columns: make([]tm.ColumnSchema, len(names))}
	for i := range names {
		schema.Columns[i] = tm.ColumnSchema{Name: names[i], Type: kinds[i], Nullable: true}
	}

	f := tm.NewFrame(schema)
	for _, rec := range data {
		appendRow(f, schema, rec, nulls)
	}
	return f, nil
}

func appendRow(f *tm.Frame, schema tm.Schema, rec []string, nulls map[string]struct{}) {
	f.AppendNullRow()
	row := f.Rows() - 1
	for i, cs := range schema.Columns {
		if i >= len(rec) {
			continue
		}
		val := strings.TrimSpace(rec[i])
		if _, isNull := nulls[val]; isNull {
			continue
		}
		switch cs.Type {
		case tm.KindFloat:
			if x, err := strconv.ParseFloat(val, 64); err == nil {
				_ = f.SetCell(row, cs.Name, x)
			}
		case tm.KindInt:
			if x, err := strconv.ParseInt(val, 10, 64); err == nil {
				_ = f.SetCell(row, cs.Name, x)
			}
		case tm.KindBool:
			if x, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
				_ = f.SetCell(row, cs.Name, x)
			}
		default:
			_ = f.SetCell(row, cs.Name, val)
		}
	}
}

var numRe = regexp.MustCompile(`^[-+]?[0-9]*\.?[0-9]+([eE][-+]?[0-9]+)?$`)

func inferKinds(rows [][]string, ncol int, nulls map[string]struct{}) []tm.Kind {
	kinds := make([]tm.Kind, ncol)
	for c := 0; c < ncol; c++ {
		num, integer, str := 0, 0, 0
		for _, row := range rows {
			if c >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[c])
			if _, isNull := nulls[v]; isNull {
				continue
			}
			if numRe.MatchString(v) {
				num++
				if !strings.ContainsAny(v, ".eE") {
					integer++
				}
				continue
			}
			lv := strings.ToLower(v)
			if lv == "true" || lv == "false" {
				continue
			}
			str++
		}
		if num > str {
			if integer == num {
				kinds[c] = tm.KindInt
			} else {
				kinds[c] = tm.KindFloat
			}
		} else {
			kinds[c] = tm.KindString
		}
	}
	return kinds
}
