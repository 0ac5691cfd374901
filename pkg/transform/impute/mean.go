package impute

import (
	"context"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// Mean fills missing numeric cells with the column mean. Int columns
// round to the nearest integer.
type Mean struct {
	Column string

	Filled int
	Value  float64
}

func (t *Mean) Name() string { return "impute_mean" }

func (t *Mean) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Filled = 0
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	switch c := col.(type) {
	case *tm.FloatColumn:
		var sum float64
		var n int
		for i := 0; i < c.Len(); i++ {
			if !c.IsNull(i) {
				v, _ := c.Get(i)
				sum += v
				n++
			}
		}
		if n == 0 {
			return f, nil
		}
		t.Value = sum / float64(n)
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, t.Value)
				t.Filled++
			}
		}
	case *tm.IntColumn:
		var sum int64
		var n int
		for i := 0; i < c.Len(); i++ {
			if !c.IsNull(i) {
				v, _ := c.Get(i)
				sum += v
				n++
			}
		}
		if n == 0 {
			return f, nil
		}
		t.Value = float64(sum) / float64(n)
		rounded := int64(t.Value + 0.5)
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, rounded)
				t.Filled++
			}
		}
	}
	return f, nil
}
