package tablemend

import "testing"

func buildSmallFrame(t *testing.T) *Frame {
	t.Helper()
	s := Schema{Columns: []ColumnSchema{
		{Name: "taux", Type: KindFloat, Nullable: true},
		{Name: "region", Type: KindString, Nullable: true},
	}}
	f := NewFrame(s)
	for i := 0; i < 4; i++ {
		f.AppendNullRow()
	}
	_ = f.SetCell(0, "taux", 12.5)
	_ = f.SetCell(1, "taux", 14.0)
	_ = f.SetCell(0, "region", "11")
	_ = f.SetCell(1, "region", "32")
	_ = f.SetCell(2, "region", "11")
	return f
}

func TestNullCount(t *testing.T) {
	f := buildSmallFrame(t)
	if got := f.NullCount("taux"); got != 2 {
		t.Fatalf("expected 2 nulls in taux, got %d", got)
	}
	if got := f.NullCount("region"); got != 1 {
		t.Fatalf("expected 1 null in region, got %d", got)
	}
	if got := f.NullCount("nope"); got != 0 {
		t.Fatalf("unknown column should count 0, got %d", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	f := buildSmallFrame(t)
	snap := f.Clone()
	_ = f.SetCell(2, "taux", 99.0)
	f.DropColumn("region")

	if snap.NullCount("taux") != 2 {
		t.Fatal("clone saw mutation of original")
	}
	if _, ok := snap.ColumnByName("region"); !ok {
		t.Fatal("clone lost dropped column")
	}
	if f.Cols() != 1 {
		t.Fatalf("expected 1 column after drop, got %d", f.Cols())
	}
}

func TestDropColumnReindexes(t *testing.T) {
	f := buildSmallFrame(t)
	f.DropColumn("taux")
	col, ok := f.ColumnByName("region")
	if !ok {
		t.Fatal("region lost after dropping taux")
	}
	if v, _ := col.(*StringColumn).Get(0); v != "11" {
		t.Fatalf("region data corrupted, got %q", v)
	}
	// unknown drop is a no-op
	f.DropColumn("taux")
	if f.Cols() != 1 {
		t.Fatalf("expected 1 column, got %d", f.Cols())
	}
}

func TestAddColumn(t *testing.T) {
	f := buildSmallFrame(t)
	ind := NewBoolColumn("taux_was_missing", 0)
	for i := 0; i < f.Rows(); i++ {
		ind.Append(i >= 2)
	}
	if err := f.AddColumn(ind); err != nil {
		t.Fatal(err)
	}
	if err := f.AddColumn(ind); err == nil {
		t.Fatal("expected error on duplicate column name")
	}
	short := NewBoolColumn("short", 2)
	if err := f.AddColumn(short); err == nil {
		t.Fatal("expected error on length mismatch")
	}
	names := f.Names()
	if names[len(names)-1] != "taux_was_missing" {
		t.Fatalf("indicator not last in schema: %v", names)
	}
}

func TestKindClass(t *testing.T) {
	if KindFloat.Class() != ClassNumeric || KindInt.Class() != ClassNumeric {
		t.Fatal("int/float should be numeric")
	}
	if KindString.Class() != ClassCategorical || KindBool.Class() != ClassCategorical || KindTime.Class() != ClassCategorical {
		t.Fatal("string/bool/time should be categorical")
	}
}

func TestCellString(t *testing.T) {
	f := buildSmallFrame(t)
	if s, ok := f.CellString(0, "region"); !ok || s != "11" {
		t.Fatalf("got %q ok=%v", s, ok)
	}
	if _, ok := f.CellString(3, "region"); ok {
		t.Fatal("null cell should report not ok")
	}
	if s, ok := f.CellString(1, "taux"); !ok || s != "14" {
		t.Fatalf("got %q ok=%v", s, ok)
	}
}
