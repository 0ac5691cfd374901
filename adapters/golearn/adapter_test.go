package golearn

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/santedata/tablemend/pkg/io/csvio"
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

func TestRoundTrip(t *testing.T) {
	schema := tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "taux", Type: tm.KindFloat, Nullable: true},
		{Name: "nb", Type: tm.KindInt, Nullable: true},
		{Name: "region", Type: tm.KindString, Nullable: true},
	}}
	f := tm.NewFrame(schema)
	f.AppendNullRow()
	_ = f.SetCell(0, "taux", 1.5)
	_ = f.SetCell(0, "nb", int64(3))
	_ = f.SetCell(0, "region", "11")
	f.AppendNullRow()
	_ = f.SetCell(1, "taux", 2.75)
	_ = f.SetCell(1, "nb", int64(8))
	_ = f.SetCell(1, "region", "93")

	inst, err := ToDenseInstances(f, "region")
	if err != nil {
		t.Fatal(err)
	}
	back, err := FromDenseInstances(inst)
	if err != nil {
		t.Fatal(err)
	}
	if back.Rows() != 2 {
		t.Fatalf("expected 2 rows, got %d", back.Rows())
	}
	col, ok := back.ColumnByName("taux")
	if !ok {
		t.Fatal("taux column missing after round trip")
	}
	fc, ok := col.(*tm.FloatColumn)
	if !ok {
		t.Fatalf("taux should come back as float, got %T", col)
	}
	if v, ok := fc.Get(1); !ok || math.Abs(v-2.75) > 1e-12 {
		t.Fatalf("taux[1]: got %v ok=%v", v, ok)
	}
	// int columns travel as floats
	nbCol, _ := back.ColumnByName("nb")
	if _, ok := nbCol.(*tm.FloatColumn); !ok {
		t.Fatalf("nb should come back as float, got %T", nbCol)
	}
	if v, ok := back.CellString(0, "region"); !ok || v != "11" {
		t.Fatalf("region[0]: got %q ok=%v", v, ok)
	}
}

func TestToDenseInstancesUnknownClass(t *testing.T) {
	schema := tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "a", Type: tm.KindFloat, Nullable: true},
	}}
	f := tm.NewFrame(schema)
	if _, err := ToDenseInstances(f, "missing"); err == nil {
		t.Fatal("expected error for unknown class column")
	}
}

func TestLoadCSV(t *testing.T) {
	p := filepath.FromSlash("../../examples/data/prevalence_nulls.csv")
	inst, err := LoadCSV(p, csvio.ReaderOptions{HasHeader: true}, "")
	if err != nil {
		t.Fatal(err)
	}
	cols, rows := inst.Size()
	if cols != 8 {
		t.Fatalf("expected 8 attributes, got %d", cols)
	}
	if rows != 40 {
		t.Fatalf("expected 40 rows, got %d", rows)
	}
}
