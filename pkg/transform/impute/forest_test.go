package impute

import (
	"context"
	"fmt"
	"testing"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

func makeRegressionFrame(rows int, missEvery int) *tm.Frame {
	s := tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "a", Type: tm.KindFloat, Nullable: true},
		{Name: "b", Type: tm.KindFloat, Nullable: true},
		{Name: "c", Type: tm.KindFloat, Nullable: true},
		{Name: "y", Type: tm.KindFloat, Nullable: true},
	}}
	f := tm.NewFrame(s)
	for i := 0; i < rows; i++ {
		f.AppendNullRow()
		a := float64(i % 7)
		b := float64(i % 5)
		c := float64(i % 3)
		_ = f.SetCell(i, "a", a)
		_ = f.SetCell(i, "b", b)
		_ = f.SetCell(i, "c", c)
		if missEvery == 0 || i%missEvery != 0 {
			_ = f.SetCell(i, "y", 2*a+b)
		}
	}
	return f
}

func TestForestRegressionFillsWithinRange(t *testing.T) {
	f := makeRegressionFrame(40, 20) // rows 0 and 20 missing, 5%
	tform := &Forest{Column: "y", Trees: 25}
	if _, err := tform.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if tform.Aborted {
		t.Fatalf("unexpected abort: %s", tform.AbortReason)
	}
	if len(tform.Predictors) != 3 {
		t.Fatalf("predictors = %v, want a,b,c", tform.Predictors)
	}
	col, _ := f.ColumnByName("y")
	c := col.(*tm.FloatColumn)
	lo, hi := 0.0, 2*6.0+4.0
	for i := 0; i < c.Len(); i++ {
		v, ok := c.Get(i)
		if !ok {
			t.Fatalf("row %d still missing", i)
		}
		if v < lo || v > hi {
			t.Fatalf("row %d prediction %v outside training range [%v,%v]", i, v, lo, hi)
		}
	}
	if tform.Filled != 2 {
		t.Fatalf("filled = %d, want 2", tform.Filled)
	}
	if !tform.CVComputed {
		t.Fatal("cross-validation should run with 38 training rows")
	}
}

func TestForestDeterministicAcrossRuns(t *testing.T) {
	run := func() []float64 {
		f := makeRegressionFrame(40, 20)
		tform := &Forest{Column: "y", Trees: 10}
		if _, err := tform.Apply(context.Background(), f); err != nil {
			t.Fatal(err)
		}
		col, _ := f.ColumnByName("y")
		c := col.(*tm.FloatColumn)
		v0, _ := c.Get(0)
		v1, _ := c.Get(20)
		return []float64{v0, v1}
	}
	first := run()
	second := run()
	if first[0] != second[0] || first[1] != second[1] {
		t.Fatalf("same seed produced different fills: %v vs %v", first, second)
	}
}

func TestForestAbortsWithTooFewPredictors(t *testing.T) {
	s := tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "a", Type: tm.KindFloat, Nullable: true},
		{Name: "y", Type: tm.KindFloat, Nullable: true},
	}}
	f := tm.NewFrame(s)
	for i := 0; i < 10; i++ {
		f.AppendNullRow()
		_ = f.SetCell(i, "a", float64(i))
		if i != 0 {
			_ = f.SetCell(i, "y", float64(i))
		}
	}
	tform := &Forest{Column: "y", Trees: 5}
	if _, err := tform.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if !tform.Aborted {
		t.Fatal("expected abort with a single predictor")
	}
	col, _ := f.ColumnByName("y")
	if !col.IsNull(0) {
		t.Fatal("aborted run must leave the column untouched")
	}
}

func TestForestSkipsLowCoveragePredictors(t *testing.T) {
	f := makeRegressionFrame(20, 10)
	// hollow out most of column c so it falls under coverage
	col, _ := f.ColumnByName("c")
	for i := 0; i < 12; i++ {
		col.SetNull(i)
	}
	tform := &Forest{Column: "y", Trees: 5}
	if _, err := tform.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	for _, p := range tform.Predictors {
		if p == "c" {
			t.Fatal("column under 50% coverage must not be a predictor")
		}
	}
}

func TestForestClassification(t *testing.T) {
	s := tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "x1", Type: tm.KindFloat, Nullable: true},
		{Name: "x2", Type: tm.KindFloat, Nullable: true},
		{Name: "color", Type: tm.KindString, Nullable: true},
	}}
	f := tm.NewFrame(s)
	n := 30
	for i := 0; i < n; i++ {
		f.AppendNullRow()
		v := float64(i) - float64(n)/2
		_ = f.SetCell(i, "x1", v)
		_ = f.SetCell(i, "x2", float64(i%4))
		if i != 2 && i != 27 {
			if v < 0 {
				_ = f.SetCell(i, "color", "red")
			} else {
				_ = f.SetCell(i, "color", "green")
			}
		}
	}
	tform := &Forest{Column: "color", Trees: 25}
	if _, err := tform.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	if tform.Aborted {
		t.Fatalf("unexpected abort: %s", tform.AbortReason)
	}
	col, _ := f.ColumnByName("color")
	c := col.(*tm.StringColumn)
	v2, ok2 := c.Get(2)
	v27, ok27 := c.Get(27)
	if !ok2 || !ok27 {
		t.Fatal("classification left nulls")
	}
	if v2 != "red" || v27 != "green" {
		t.Fatalf("separable data misclassified: row2=%q row27=%q", v2, v27)
	}
}

func TestForestEncodesCategoricalPredictors(t *testing.T) {
	s := tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "region", Type: tm.KindString, Nullable: true},
		{Name: "wide", Type: tm.KindString, Nullable: true},
		{Name: "x", Type: tm.KindFloat, Nullable: true},
		{Name: "y", Type: tm.KindFloat, Nullable: true},
	}}
	f := tm.NewFrame(s)
	regions := []string{"11", "32", "84"}
	for i := 0; i < 30; i++ {
		f.AppendNullRow()
		_ = f.SetCell(i, "region", regions[i%3])
		_ = f.SetCell(i, "wide", fmt.Sprintf("id-%d", i)) // cardinality 30
		_ = f.SetCell(i, "x", float64(i))
		if i != 5 {
			_ = f.SetCell(i, "y", float64(i%3)*10)
		}
	}
	tform := &Forest{Column: "y", Trees: 10}
	if _, err := tform.Apply(context.Background(), f); err != nil {
		t.Fatal(err)
	}
	var hasRegion, hasWide bool
	for _, p := range tform.Predictors {
		if p == "region" {
			hasRegion = true
		}
		if p == "wide" {
			hasWide = true
		}
	}
	if !hasRegion {
		t.Fatal("low-cardinality string column should be an encoded predictor")
	}
	if hasWide {
		t.Fatal("high-cardinality string column must be excluded")
	}
}
