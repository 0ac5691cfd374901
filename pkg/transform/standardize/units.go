package standardize

import (
	"context"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// UnitScale multiplies a float column in place, for unit conversions
// like months to years or centimes to euros. Unit is a label for
// reports only. Integer columns are left alone: a fractional factor
// would truncate.
type UnitScale struct {
	Column string
	Factor float64
	Unit   string

	Scaled int
}

func (t *UnitScale) Name() string { return "unit_scale" }

func (t *UnitScale) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Scaled = 0
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	if c, ok := col.(*tm.FloatColumn); ok {
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			c.Set(i, v*t.Factor)
			t.Scaled++
		}
	}
	return f, nil
}
