package csvio

import (
	"encoding/csv"
	"strconv"
	"time"

	iox "github.com/santedata/tablemend/pkg/io/ioutils"
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

type WriterOptions struct {
	Delimiter rune // default ','
}

// WriteAll writes a Frame to a CSV file with headers. Nulls become
// empty cells. A ".gz" path writes compressed.
func WriteAll(path string, f *tm.Frame, opt WriterOptions) error {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if opt.Delimiter != 0 {
		w.Comma = opt.Delimiter
	}
	if err := writeFrame(w, f, f.Schema()); err != nil {
		_ = out.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func writeFrame(w *csv.Writer, f *tm.Frame, schema tm.Schema) error {
	hdr := make([]string, len(schema.Columns))
	for i, cs := range schema.Columns {
		hdr[i] = cs.Name
	}
	if err := w.Write(hdr); err != nil {
		return err
	}
	return writeRows(w, f, schema)
}

func writeRows(w *csv.Writer, f *tm.Frame, schema tm.Schema) error {
	for r := 0; r < f.Rows(); r++ {
		row := make([]string, len(schema.Columns))
		for c, cs := range schema.Columns {
			col, ok := f.ColumnByName(cs.Name)
			if !ok {
				continue
			}
			row[c] = formatCell(col, r)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// formatCell renders one cell for CSV; nulls render empty.
func formatCell(col tm.Column, r int) string {
	switch c := col.(type) {
	case *tm.FloatColumn:
		if v, ok := c.Get(r); ok {
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
	case *tm.IntColumn:
		if v, ok := c.Get(r); ok {
			return strconv.FormatInt(v, 10)
		}
	case *tm.BoolColumn:
		if v, ok := c.Get(r); ok {
			if v {
				return "true"
			}
			return "false"
		}
	case *tm.StringColumn:
		if v, ok := c.Get(r); ok {
			return v
		}
	case *tm.TimeColumn:
		if v, ok := c.Get(r); ok {
			return v.Format(time.RFC3339)
		}
	}
	return ""
}
