package validate

import (
	"context"
	"fmt"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// InSet fails the pipeline when a string column holds values outside
// the allowed set. Nulls pass; they are the resolver's problem, not a
// validity one.
type InSet struct {
	Column string
	Values map[string]struct{}

	Bad int
}

func NewInSet(col string, vals []string) *InSet {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return &InSet{Column: col, Values: m}
}

func (t *InSet) Name() string { return "validate_in" }

func (t *InSet) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Bad = 0
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	sc, ok := col.(*tm.StringColumn)
	if !ok {
		return f, nil
	}
	for i := 0; i < sc.Len(); i++ {
		if sc.IsNull(i) {
			continue
		}
		v, _ := sc.Get(i)
		if _, ok := t.Values[v]; !ok {
			t.Bad++
		}
	}
	if t.Bad > 0 {
		return f, fmt.Errorf("validate_in: column %s has %d values outside allowed set", t.Column, t.Bad)
	}
	return f, nil
}
