package jsonlio

import (
	"bufio"
	"encoding/json"

	iox "github.com/santedata/tablemend/pkg/io/ioutils"
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// WriteAll writes a Frame as JSON Lines, one object per row. Null cells
// are omitted from their row's object. A ".gz" path writes compressed.
func WriteAll(path string, f *tm.Frame) error {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	for r := 0; r < f.Rows(); r++ {
		if err := enc.Encode(rowMap(f, r)); err != nil {
			_ = out.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func rowMap(f *tm.Frame, r int) map[string]any {
	m := map[string]any{}
	for _, cs := range f.Schema().Columns {
		col, ok := f.ColumnByName(cs.Name)
		if !ok {
			continue
		}
		switch c := col.(type) {
		case *tm.FloatColumn:
			if v, ok := c.Get(r); ok {
				m[cs.Name] = v
			}
		case *tm.IntColumn:
			if v, ok := c.Get(r); ok {
				m[cs.Name] = v
			}
		case *tm.BoolColumn:
			if v, ok := c.Get(r); ok {
				m[cs.Name] = v
			}
		case *tm.StringColumn:
			if v, ok := c.Get(r); ok {
				m[cs.Name] = v
			}
		case *tm.TimeColumn:
			if v, ok := c.Get(r); ok {
				m[cs.Name] = v
			}
		}
	}
	return m
}
