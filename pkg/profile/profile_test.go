package profile

import (
	"math"
	"strings"
	"testing"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

func makeProfileFrame() *tm.Frame {
	f := tm.NewFrame(tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "a", Type: tm.KindFloat, Nullable: true},
		{Name: "b", Type: tm.KindFloat, Nullable: true},
		{Name: "noise", Type: tm.KindFloat, Nullable: true},
		{Name: "region", Type: tm.KindString, Nullable: true},
	}})
	noise := []float64{3, -1, 4, -1, 5, 9, -2, 6, 5, 3, -5, 8, 9, 7, -9, 3, 2, -3, 8, 4}
	for i := 0; i < 20; i++ {
		f.AppendNullRow()
		f.SetCell(i, "a", float64(i))
		f.SetCell(i, "b", 2*float64(i)+1)
		f.SetCell(i, "noise", noise[i])
		if i%4 != 0 {
			if i%2 == 0 {
				f.SetCell(i, "region", "11")
			} else {
				f.SetCell(i, "region", "93")
			}
		}
	}
	return f
}

func TestCollectorNumStats(t *testing.T) {
	f := makeProfileFrame()
	c := NewCollector(f.Schema(), 3)
	c.ConsumeFrame(f)
	c.Finalize()

	cols := c.Columns()
	a := cols[0].Num
	if a.Count != 20 || a.Nulls != 0 {
		t.Fatalf("a count/nulls = %d/%d", a.Count, a.Nulls)
	}
	if a.Min != 0 || a.Max != 19 {
		t.Fatalf("a min/max = %v/%v", a.Min, a.Max)
	}
	if a.Mean != 9.5 {
		t.Fatalf("a mean = %v", a.Mean)
	}
	if a.Median != 9.5 {
		t.Fatalf("a median = %v", a.Median)
	}
	if a.Q1 != 4.75 || a.Q3 != 14.25 {
		t.Fatalf("a quartiles = %v/%v", a.Q1, a.Q3)
	}

	region := cols[3].Cat
	if region.Nulls != 5 || region.Count != 15 {
		t.Fatalf("region count/nulls = %d/%d", region.Count, region.Nulls)
	}
	if region.Cardinality != 2 {
		t.Fatalf("region cardinality = %d", region.Cardinality)
	}
}

func TestCollectorCorrelations(t *testing.T) {
	f := makeProfileFrame()
	c := NewCollector(f.Schema(), 3)
	c.ConsumeFrame(f)
	c.Finalize()

	corrs := c.Correlations()
	if len(corrs) != 1 {
		t.Fatalf("correlations = %+v", corrs)
	}
	p := corrs[0]
	if p.A != "a" || p.B != "b" {
		t.Fatalf("flagged pair %s~%s", p.A, p.B)
	}
	if math.Abs(p.R-1) > 1e-9 {
		t.Fatalf("r = %v, want 1", p.R)
	}
}

func TestCollectorMissingRanking(t *testing.T) {
	f := makeProfileFrame()
	c := NewCollector(f.Schema(), 3)
	c.ConsumeFrame(f)
	c.Finalize()

	ranking := c.MissingRanking()
	if len(ranking) != 1 || ranking[0].Column != "region" {
		t.Fatalf("ranking = %+v", ranking)
	}
	if ranking[0].Fraction != 0.25 {
		t.Fatalf("fraction = %v", ranking[0].Fraction)
	}
}

func TestReportTextSections(t *testing.T) {
	f := makeProfileFrame()
	c := NewCollector(f.Schema(), 2)
	c.ConsumeFrame(f)

	out := c.ReportText()
	for _, want := range []string{"Profile Summary", "median=", "Missing ranking", "High correlations", "a ~ b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
}

func TestReportJSON(t *testing.T) {
	f := makeProfileFrame()
	c := NewCollector(f.Schema(), 2)
	c.ConsumeFrame(f)

	js := c.ReportJSON()
	if js.Rows != 20 {
		t.Fatalf("rows = %d", js.Rows)
	}
	if len(js.Columns) != 4 {
		t.Fatalf("columns = %d", len(js.Columns))
	}
	if js.Columns[0].Num == nil || js.Columns[0].Num.Median != 9.5 {
		t.Fatal("numeric stats not carried into JSON")
	}
	if js.Columns[3].Cat == nil || js.Columns[3].Cat.Cardinality != 2 {
		t.Fatal("categorical stats not carried into JSON")
	}
	if len(js.Correlations) != 1 {
		t.Fatalf("correlations = %+v", js.Correlations)
	}
}
