package standardize

import (
	"context"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// MapValues rewrites exact matches. Compose with Trim and Lower when
// the source data is sloppy about casing.
type MapValues struct {
	Column string
	Map    map[string]string

	Changed int
}

func (t *MapValues) Name() string { return "map_values" }

func (t *MapValues) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
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
			if nv, ok := t.Map[v]; ok && nv != v {
				c.Set(i, nv)
				t.Changed++
			}
		}
	}
	return f, nil
}
