package impute

import (
	"context"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// Constant fills missing cells with a fixed value coerced to the column
// kind. Filled reports how many cells the last Apply touched.
type Constant struct {
	Column string
	Value  any

	Filled int
}

func (t *Constant) Name() string { return "impute_constant" }

func (t *Constant) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Filled = 0
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	switch c := col.(type) {
	case *tm.FloatColumn:
		var vv float64
		switch v := t.Value.(type) {
		case int:
			vv = float64(v)
		case int64:
			vv = float64(v)
		case float64:
			vv = v
		}
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, vv)
				t.Filled++
			}
		}
	case *tm.IntColumn:
		var vv int64
		switch v := t.Value.(type) {
		case int:
			vv = int64(v)
		case int64:
			vv = v
		case float64:
			vv = int64(v)
		}
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, vv)
				t.Filled++
			}
		}
	case *tm.StringColumn:
		vv, _ := t.Value.(string)
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, vv)
				t.Filled++
			}
		}
	case *tm.BoolColumn:
		vv, _ := t.Value.(bool)
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, vv)
				t.Filled++
			}
		}
	}
	return f, nil
}
