package missing

import (
	"testing"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

func makeNumericFrame(vals []float64) *tm.Frame {
	f := tm.NewFrame(tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "taux", Type: tm.KindFloat, Nullable: true},
	}})
	for i, v := range vals {
		f.AppendNullRow()
		f.SetCell(i, "taux", v)
	}
	return f
}

func TestValidateQualityIdenticalFrames(t *testing.T) {
	vals := make([]float64, 50)
	for i := range vals {
		vals[i] = float64(i%13) * 1.7
	}
	before := makeNumericFrame(vals)
	after := before.Clone()

	results := ValidateQuality(before, after)
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	if r.Score != 1.0 {
		t.Fatalf("identical frames scored %v, want 1.0", r.Score)
	}
	if !r.Similar {
		t.Fatal("identical frames not similar")
	}
	if r.MeanRelDiff != 0 || r.StdRelDiff != 0 {
		t.Fatalf("rel diffs = %v, %v", r.MeanRelDiff, r.StdRelDiff)
	}
	if OverallScore(results) != 1.0 {
		t.Fatalf("OverallScore = %v", OverallScore(results))
	}
}

func TestValidateQualityDetectsShift(t *testing.T) {
	vals := make([]float64, 100)
	for i := range vals {
		vals[i] = float64(i)
	}
	before := makeNumericFrame(vals)
	shifted := make([]float64, 100)
	for i := range shifted {
		shifted[i] = float64(i) + 1000
	}
	after := makeNumericFrame(shifted)

	results := ValidateQuality(before, after)
	if len(results) != 1 {
		t.Fatal("expected one result")
	}
	r := results[0]
	if r.MeanRelDiff < 1 {
		t.Fatalf("MeanRelDiff = %v, want a large shift", r.MeanRelDiff)
	}
	if r.Similar {
		t.Fatal("disjoint distributions reported similar")
	}
	if r.Score > 0.5 {
		t.Fatalf("score = %v for a gross shift", r.Score)
	}
}

func TestValidateQualitySkipsDroppedAndShort(t *testing.T) {
	before := tm.NewFrame(tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "kept", Type: tm.KindFloat, Nullable: true},
		{Name: "gone", Type: tm.KindFloat, Nullable: true},
		{Name: "lone", Type: tm.KindFloat, Nullable: true},
		{Name: "label", Type: tm.KindString, Nullable: true},
	}})
	for i := 0; i < 6; i++ {
		before.AppendNullRow()
		before.SetCell(i, "kept", float64(i))
		before.SetCell(i, "gone", float64(i))
		before.SetCell(i, "label", "a")
	}
	before.SetCell(0, "lone", 4.2)

	after := before.Clone()
	after.DropColumn("gone")

	results := ValidateQuality(before, after)
	if len(results) != 1 || results[0].Column != "kept" {
		t.Fatalf("results = %+v", results)
	}
}

func TestOverallScoreNoComparableColumns(t *testing.T) {
	if got := OverallScore(nil); got != 1.0 {
		t.Fatalf("OverallScore(nil) = %v, want 1", got)
	}
}

func TestKSPValue(t *testing.T) {
	if p := ksPValue(0, 50, 50); p != 1 {
		t.Fatalf("p(0) = %v, want 1", p)
	}
	if p := ksPValue(1, 100, 100); p > 1e-6 {
		t.Fatalf("p(1) = %v, want ~0", p)
	}
	mid := ksPValue(0.1, 100, 100)
	if mid <= 0 || mid >= 1 {
		t.Fatalf("p(0.1) = %v, want inside (0, 1)", mid)
	}
	if p := ksPValue(0.5, 40, 40); p < 0 {
		t.Fatalf("p(0.5) = %v, negative probabilities must clamp", p)
	}
}
