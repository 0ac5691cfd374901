package impute

import (
	"context"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// FallbackLabel is what mode fills resolve to when a string column has
// no observed values at all.
const FallbackLabel = "Unknown"

// Mode fills missing cells with the most frequent value. Ties resolve
// to the smallest value so repeated runs agree. String columns with no
// observed values fall back to FallbackLabel; other kinds are left
// unchanged in that case.
type Mode struct {
	Column string

	Filled int
	Value  string
}

func (t *Mode) Name() string { return "impute_mode" }

func (t *Mode) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Filled = 0
	t.Value = ""
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	switch c := col.(type) {
	case *tm.StringColumn:
		counts := map[string]int{}
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			counts[v]++
		}
		best := modeStrings(counts)
		t.Value = best
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, best)
				t.Filled++
			}
		}
	case *tm.IntColumn:
		counts := map[int64]int{}
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			counts[v]++
		}
		if len(counts) == 0 {
			return f, nil
		}
		best := modeInts(counts)
		t.Value = formatInt(best)
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, best)
				t.Filled++
			}
		}
	case *tm.BoolColumn:
		var trues, falses, seen int
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			if v {
				trues++
			} else {
				falses++
			}
			seen++
		}
		if seen == 0 {
			return f, nil
		}
		best := trues > falses
		if best {
			t.Value = "true"
		} else {
			t.Value = "false"
		}
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				c.Set(i, best)
				t.Filled++
			}
		}
	}
	return f, nil
}

// modeStrings picks the most frequent key, smallest on ties, and
// FallbackLabel when counts is empty.
func modeStrings(counts map[string]int) string {
	if len(counts) == 0 {
		return FallbackLabel
	}
	var best string
	bestc := -1
	for v, n := range counts {
		if n > bestc || (n == bestc && v < best) {
			best = v
			bestc = n
		}
	}
	return best
}

func modeInts(counts map[int64]int) int64 {
	var best int64
	bestc := -1
	for v, n := range counts {
		if n > bestc || (n == bestc && v < best) {
			best = v
			bestc = n
		}
	}
	return best
}
