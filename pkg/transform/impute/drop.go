package impute

import (
	"context"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// Drop removes a column outright. The resolution step reaches for it
// when a column is too hollow to be worth reconstructing.
type Drop struct {
	Column string

	Dropped bool
}

func (t *Drop) Name() string { return "drop_column" }

func (t *Drop) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	_, t.Dropped = f.ColumnByName(t.Column)
	f.DropColumn(t.Column)
	return f, nil
}
