package impute

import (
	"context"
	"testing"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

func makeGroupedFrame() *tm.Frame {
	s := tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "age_group", Type: tm.KindString, Nullable: true},
		{Name: "score", Type: tm.KindFloat, Nullable: true},
	}}
	f := tm.NewFrame(s)
	rows := []struct {
		g string
		v float64
		n bool
	}{
		{"A", 10, false},
		{"A", 20, false},
		{"A", 30, false},
		{"A", 0, true},
		{"B", 100, false},
		{"B", 200, false},
		{"B", 300, false},
		{"B", 0, true},
	}
	for i, r := range rows {
		f.AppendNullRow()
		_ = f.SetCell(i, "age_group", r.g)
		if !r.n {
			_ = f.SetCell(i, "score", r.v)
		}
	}
	return f
}

func TestGroupMedianFillsPerGroup(t *testing.T) {
	f := makeGroupedFrame()
	tform := &Group{Column: "score", GroupColumns: []string{"region_code", "age_group"}}
	if _, err := tform.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if tform.UsedGroup != "age_group" {
		t.Fatalf("expected first available group column age_group, got %q", tform.UsedGroup)
	}
	col, _ := f.ColumnByName("score")
	c := col.(*tm.FloatColumn)
	if v, ok := c.Get(3); !ok || v != 20 {
		t.Fatalf("group A fill = %v, want its median 20", v)
	}
	if v, ok := c.Get(7); !ok || v != 200 {
		t.Fatalf("group B fill = %v, want its median 200", v)
	}
	if tform.Filled != 2 || tform.Swept != 0 {
		t.Fatalf("filled/swept = %d/%d, want 2/0", tform.Filled, tform.Swept)
	}
}

func TestGroupSweepsRowsWithoutGroup(t *testing.T) {
	f := makeGroupedFrame()
	// row with null group key and a missing score
	f.AppendNullRow()
	tform := &Group{Column: "score", GroupColumns: []string{"age_group"}}
	if _, err := tform.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	col, _ := f.ColumnByName("score")
	c := col.(*tm.FloatColumn)
	v, ok := c.Get(8)
	if !ok {
		t.Fatal("sweep left the groupless row null")
	}
	// sweep median runs over observed plus group-filled values:
	// sorted 10,20,20,30,100,200,200,300 -> (30+100)/2
	if v != 65 {
		t.Fatalf("sweep fill = %v, want 65", v)
	}
	if tform.Swept != 1 {
		t.Fatalf("swept = %d, want 1", tform.Swept)
	}
}

func TestGroupFallsBackWhenNoCandidatePresent(t *testing.T) {
	f := makeGroupedFrame()
	tform := &Group{Column: "score", GroupColumns: []string{"sexe", "region_code"}}
	if _, err := tform.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if tform.UsedGroup != "" {
		t.Fatalf("no candidate should match, got %q", tform.UsedGroup)
	}
	col, _ := f.ColumnByName("score")
	c := col.(*tm.FloatColumn)
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			t.Fatalf("global fallback left null at row %d", i)
		}
	}
	if tform.Swept != 2 {
		t.Fatalf("swept = %d, want 2", tform.Swept)
	}
}

func TestGroupModeForCategorical(t *testing.T) {
	s := tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "sexe", Type: tm.KindString, Nullable: true},
		{Name: "diag", Type: tm.KindString, Nullable: true},
	}}
	f := tm.NewFrame(s)
	rows := []struct{ g, v string }{
		{"F", "TSA"}, {"F", "TSA"}, {"F", "TDAH"}, {"F", ""},
		{"M", "TDAH"}, {"M", "TDAH"}, {"M", ""},
	}
	for i, r := range rows {
		f.AppendNullRow()
		_ = f.SetCell(i, "sexe", r.g)
		if r.v != "" {
			_ = f.SetCell(i, "diag", r.v)
		}
	}
	tform := &Group{Column: "diag", GroupColumns: []string{"sexe"}}
	if _, err := tform.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	col, _ := f.ColumnByName("diag")
	c := col.(*tm.StringColumn)
	if v, _ := c.Get(3); v != "TSA" {
		t.Fatalf("F group fill = %q, want TSA", v)
	}
	if v, _ := c.Get(6); v != "TDAH" {
		t.Fatalf("M group fill = %q, want TDAH", v)
	}
}

func TestGroupSkipsSelfAsKey(t *testing.T) {
	f := makeGroupedFrame()
	tform := &Group{Column: "score", GroupColumns: []string{"score", "age_group"}}
	if _, err := tform.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if tform.UsedGroup != "age_group" {
		t.Fatalf("grouping by the target itself must be skipped, got %q", tform.UsedGroup)
	}
}
