package tablemend_test

import (
	"context"
	"testing"

	tm "github.com/santedata/tablemend/pkg/tablemend"
	imp "github.com/santedata/tablemend/pkg/transform/impute"
	std "github.com/santedata/tablemend/pkg/transform/standardize"
)

func TestPipeline(t *testing.T) {
	s := tm.Schema{Columns: []tm.ColumnSchema{{Name: "x", Type: tm.KindFloat, Nullable: true}, {Name: "s", Type: tm.KindString, Nullable: true}}}
	f := tm.NewFrame(s)
	for i := 0; i < 2; i++ {
		f.AppendNullRow()
	}
	_ = f.SetCell(0, "x", 1.0)
	_ = f.SetCell(0, "s", " Foo ")
	// row 1 left nulls

	p := tm.NewPipeline().Add(&imp.Mean{Column: "x"}).Add(&std.Trim{Column: "s"})
	out, err := p.Run(context.Background(), f)
	if err != nil {
		t.Fatal(err)
	}
	colX, _ := out.ColumnByName("x")
	fx := colX.(*tm.FloatColumn)
	if fx.IsNull(1) {
		t.Fatal("imputer failed to fill null")
	}
	colS, _ := out.ColumnByName("s")
	ss := colS.(*tm.StringColumn)
	s0, _ := ss.Get(0)
	if s0 != "Foo" {
		t.Fatalf("trim failed, got %q", s0)
	}
	if p.Len() != 2 {
		t.Fatalf("expected 2 steps, got %d", p.Len())
	}
}
