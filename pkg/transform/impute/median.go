package impute

import (
	"context"
	"sort"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// Median fills missing numeric cells with the column median: mean of
// the two central values for even counts, integer midpoint on int
// columns.
type Median struct {
	Column string

	Filled int
	Value  float64
}

func (t *Median) Name() string { return "impute_median" }

func (t *Median) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Filled = 0
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	switch c := col.(type) {
	case *tm.FloatColumn:
		vals := observedFloats(c)
		if len(vals) == 0 {
			return f, nil
		}
		med := medianFloats(vals)
		t.Value = med
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, med)
				t.Filled++
			}
		}
	case *tm.IntColumn:
		vals := observedInts(c)
		if len(vals) == 0 {
			return f, nil
		}
		med := medianInts(vals)
		t.Value = float64(med)
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, med)
				t.Filled++
			}
		}
	}
	return f, nil
}

func observedFloats(c *tm.FloatColumn) []float64 {
	vals := make([]float64, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if !c.IsNull(i) {
			v, _ := c.Get(i)
			vals = append(vals, v)
		}
	}
	return vals
}

func observedInts(c *tm.IntColumn) []int64 {
	vals := make([]int64, 0, c.Len())
	for i := 0; i < c.Len(); i++ {
		if !c.IsNull(i) {
			v, _ := c.Get(i)
			vals = append(vals, v)
		}
	}
	return vals
}

// medianFloats sorts a copy of vals. Callers pass at least one value.
func medianFloats(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}

func medianInts(vals []int64) int64 {
	s := append([]int64(nil), vals...)
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
