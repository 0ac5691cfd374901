package outliers

import (
	"context"

	"gonum.org/v1/gonum/stat"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// DefaultZScoreThreshold matches the observatory's OUTLIER_ZSCORE
// default.
const DefaultZScoreThreshold = 2.5

// ZScore counts values further than Threshold sample standard
// deviations from the column mean. With Cap set, those values are
// clamped to the boundary instead of just counted. Columns with fewer
// than two observed values are left alone.
type ZScore struct {
	Column    string
	Threshold float64 // 0 means DefaultZScoreThreshold
	Cap       bool

	Outliers int
	Mean     float64
	Std      float64
}

func (t *ZScore) Name() string { return "zscore" }

func (t *ZScore) threshold() float64 {
	if t.Threshold <= 0 {
		return DefaultZScoreThreshold
	}
	return t.Threshold
}

func (t *ZScore) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Outliers = 0
	t.Mean = 0
	t.Std = 0
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}

	var vals []float64
	switch c := col.(type) {
	case *tm.FloatColumn:
		for i := 0; i < c.Len(); i++ {
			if v, ok := c.Get(i); ok {
				vals = append(vals, v)
			}
		}
	case *tm.IntColumn:
		for i := 0; i < c.Len(); i++ {
			if v, ok := c.Get(i); ok {
				vals = append(vals, float64(v))
			}
		}
	default:
		return f, nil
	}
	if len(vals) < 2 {
		return f, nil
	}
	t.Mean = stat.Mean(vals, nil)
	t.Std = stat.StdDev(vals, nil)
	if t.Std == 0 {
		return f, nil
	}
	lo := t.Mean - t.threshold()*t.Std
	hi := t.Mean + t.threshold()*t.Std

	switch c := col.(type) {
	case *tm.FloatColumn:
		for i := 0; i < c.Len(); i++ {
			v, ok := c.Get(i)
			if !ok || (v >= lo && v <= hi) {
				continue
			}
			t.Outliers++
			if t.Cap {
				if v < lo {
					c.Set(i, lo)
				} else {
					c.Set(i, hi)
				}
			}
		}
	case *tm.IntColumn:
		for i := 0; i < c.Len(); i++ {
			v, ok := c.Get(i)
			if !ok || (float64(v) >= lo && float64(v) <= hi) {
				continue
			}
			t.Outliers++
			if t.Cap {
				if float64(v) < lo {
					c.Set(i, int64(lo))
				} else {
					c.Set(i, int64(hi))
				}
			}
		}
	}
	return f, nil
}
