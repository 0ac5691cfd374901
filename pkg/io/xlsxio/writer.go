package xlsxio

import (
	"time"

	"github.com/xuri/excelize/v2"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// WriteAll writes a Frame to an Excel workbook, one sheet, headers in
// row 1. Null cells stay empty. Times are written as RFC 3339 text so
// they survive a read back unchanged.
func WriteAll(path string, f *tm.Frame, sheet string) error {
	if sheet == "" {
		sheet = "Sheet1"
	}
	wb := excelize.NewFile()
	defer func() { _ = wb.Close() }()

	idx, err := wb.NewSheet(sheet)
	if err != nil {
		return err
	}
	wb.SetActiveSheet(idx)
	if sheet != "Sheet1" {
		_ = wb.DeleteSheet("Sheet1")
	}

	for i, cs := range f.Schema().Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := wb.SetCellValue(sheet, cell, cs.Name); err != nil {
			return err
		}
	}
	for r := 0; r < f.Rows(); r++ {
		for c, cs := range f.Schema().Columns {
			col, ok := f.ColumnByName(cs.Name)
			if !ok {
				continue
			}
			v, ok := cellValue(col, r)
			if !ok {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := wb.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return wb.SaveAs(path)
}

func cellValue(col tm.Column, r int) (any, bool) {
	switch c := col.(type) {
	case *tm.FloatColumn:
		if v, ok := c.Get(r); ok {
			return v, true
		}
	case *tm.IntColumn:
		if v, ok := c.Get(r); ok {
			return v, true
		}
	case *tm.BoolColumn:
		if v, ok := c.Get(r); ok {
			return v, true
		}
	case *tm.StringColumn:
		if v, ok := c.Get(r); ok {
			return v, true
		}
	case *tm.TimeColumn:
		if v, ok := c.Get(r); ok {
			return v.Format(time.RFC3339), true
		}
	}
	return nil, false
}
