package standardize

import (
	"context"
	"strings"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

type Trim struct {
	Column string

	Changed int
}

func (t *Trim) Name() string { return "trim" }

func (t *Trim) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Changed = 0
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	if c, ok := col.(*tm.StringColumn); ok {
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			nv := strings.TrimSpace(v)
			if nv != v {
				c.Set(i, nv)
				t.Changed++
			}
		}
	}
	return f, nil
}
