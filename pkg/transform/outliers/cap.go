package outliers

import (
	"context"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// Cap clamps a numeric column to [Min, Max]. Either bound may be nil.
type Cap struct {
	Column string
	Min    *float64
	Max    *float64

	Capped int
}

func (t *Cap) Name() string { return "cap_range" }

func (t *Cap) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Capped = 0
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	switch c := col.(type) {
	case *tm.FloatColumn:
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			nv := v
			if t.Min != nil && nv < *t.Min {
				nv = *t.Min
			}
			if t.Max != nil && nv > *t.Max {
				nv = *t.Max
			}
			if nv != v {
				c.Set(i, nv)
				t.Capped++
			}
		}
	case *tm.IntColumn:
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			nv := v
			if t.Min != nil && float64(nv) < *t.Min {
				nv = int64(*t.Min)
			}
			if t.Max != nil && float64(nv) > *t.Max {
				nv = int64(*t.Max)
			}
			if nv != v {
				c.Set(i, nv)
				t.Capped++
			}
		}
	}
	return f, nil
}
