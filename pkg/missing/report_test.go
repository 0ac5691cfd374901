package missing

import (
	"bytes"
	"strings"
	"testing"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

func sampleEntries() []LogEntry {
	return []LogEntry{
		{Dataset: "d", Column: "a", Kind: tm.KindFloat, Strategy: StrategyMedian, Confidence: 0.5, MissingBefore: 2},
		{Dataset: "d", Column: "b", Kind: tm.KindFloat, Strategy: StrategyGroupMedian, Confidence: 0.7, MissingBefore: 10, GroupColumn: "age_group"},
		{Dataset: "d", Column: "c", Kind: tm.KindString, Strategy: StrategyDropColumn, Confidence: 0.1, MissingBefore: 40, Dropped: true},
		{Dataset: "d", Column: "e", Kind: tm.KindFloat, Strategy: StrategyGroupMedian, Confidence: 0.7, MissingBefore: 4, GroupColumn: "sexe"},
	}
}

func TestSummarize(t *testing.T) {
	sums := Summarize(sampleEntries())
	if len(sums) != 3 {
		t.Fatalf("summaries = %d, want 3", len(sums))
	}
	if sums[0].Strategy != StrategyDropColumn || sums[0].Cells != 40 {
		t.Fatalf("busiest = %+v", sums[0])
	}
	if sums[1].Strategy != StrategyGroupMedian || sums[1].Columns != 2 || sums[1].Cells != 14 {
		t.Fatalf("group rollup = %+v", sums[1])
	}
	if sums[2].Strategy != StrategyMedian {
		t.Fatalf("last = %+v", sums[2])
	}
}

func TestEntriesFrameKeepsDroppedMarker(t *testing.T) {
	f := EntriesFrame(sampleEntries())
	if f.Rows() != 4 {
		t.Fatalf("rows = %d", f.Rows())
	}
	if v, ok := f.CellString(2, "missing_after"); !ok || v != DroppedMarker {
		t.Fatalf("missing_after = %q", v)
	}
	if v, _ := f.CellString(1, "detail"); v != "group=age_group" {
		t.Fatalf("detail = %q", v)
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, Summarize(sampleEntries()))
	out := buf.String()
	for _, want := range []string{"drop_column", "group_median", "median_imputation", "40"} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary table missing %q:\n%s", want, out)
		}
	}
}

func TestQualityFrameColumns(t *testing.T) {
	f := QualityFrame([]QualityResult{{Column: "taux", Score: 0.9, Similar: true, KSPValue: 0.4}})
	if f.Rows() != 1 {
		t.Fatalf("rows = %d", f.Rows())
	}
	if v, _ := f.CellString(0, "column"); v != "taux" {
		t.Fatalf("column = %q", v)
	}
	if v, _ := f.CellString(0, "similar"); v != "true" {
		t.Fatalf("similar = %q", v)
	}
}
