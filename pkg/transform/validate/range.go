package validate

import (
	"context"
	"fmt"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// Range fails the pipeline when a numeric column leaves [Min, Max].
// Either bound may be nil for a one-sided check.
type Range struct {
	Column string
	Min    *float64
	Max    *float64

	Bad int
}

func (t *Range) Name() string { return "validate_range" }

func (t *Range) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Bad = 0
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
			if t.outOfRange(v) {
				t.Bad++
			}
		}
	case *tm.IntColumn:
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			if t.outOfRange(float64(v)) {
				t.Bad++
			}
		}
	}
	if t.Bad > 0 {
		return f, fmt.Errorf("validate_range: column %s has %d out-of-range values", t.Column, t.Bad)
	}
	return f, nil
}

func (t *Range) outOfRange(v float64) bool {
	if t.Min != nil && v < *t.Min {
		return true
	}
	if t.Max != nil && v > *t.Max {
		return true
	}
	return false
}
