package impute

import (
	"context"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// MissingLabel is the sentinel category for values that are absent in a
// way worth modelling rather than hiding.
const MissingLabel = "Missing_Data"

// MissingCategory turns missing cells of a string column into an
// explicit category instead of guessing a value. Value defaults to
// MissingLabel.
type MissingCategory struct {
	Column string
	Value  string

	Filled int
}

func (t *MissingCategory) Name() string { return "impute_missing_category" }

func (t *MissingCategory) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Filled = 0
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	c, ok := col.(*tm.StringColumn)
	if !ok {
		return f, nil
	}
	label := t.Value
	if label == "" {
		label = MissingLabel
	}
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			c.Set(i, label)
			t.Filled++
		}
	}
	return f, nil
}
