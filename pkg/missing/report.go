package missing

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// StrategySummary aggregates the decision log for one strategy.
type StrategySummary struct {
	Strategy Strategy
	Columns  int
	Cells    int
}

// Summarize groups log entries by strategy. Cells counts the missing
// cells each strategy was asked to handle. Ordered by cells handled,
// busiest first, strategy name breaking ties.
func Summarize(entries []LogEntry) []StrategySummary {
	byStrategy := make(map[Strategy]*StrategySummary)
	for _, e := range entries {
		s, ok := byStrategy[e.Strategy]
		if !ok {
			s = &StrategySummary{Strategy: e.Strategy}
			byStrategy[e.Strategy] = s
		}
		s.Columns++
		s.Cells += e.MissingBefore
	}
	out := make([]StrategySummary, 0, len(byStrategy))
	for _, s := range byStrategy {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cells != out[j].Cells {
			return out[i].Cells > out[j].Cells
		}
		return out[i].Strategy < out[j].Strategy
	})
	return out
}

// entryDetail renders the strategy-specific part of a log entry.
func entryDetail(e LogEntry) string {
	switch {
	case e.Note != "":
		return e.Note
	case len(e.Predictors) > 0:
		d := "predictors=" + strings.Join(e.Predictors, ",")
		if e.CVComputed {
			d += fmt.Sprintf(" cv=%.3f", e.CVScore)
		}
		return d
	case e.GroupColumn != "":
		d := "group=" + e.GroupColumn
		if e.ImputedValue != "" {
			d += " sweep=" + e.ImputedValue
		}
		return d
	case e.ImputedValue != "":
		return "value=" + e.ImputedValue
	}
	return ""
}

// RenderMissingness writes the pre-run profile as a ranked text table.
func RenderMissingness(w io.Writer, p *Profile) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Column", "Type", "Missing", "Total", "Fraction"})
	for _, c := range p.Columns {
		table.Append([]string{
			c.Column,
			c.Kind.String(),
			fmt.Sprintf("%d", c.Missing),
			fmt.Sprintf("%d", c.Total),
			fmt.Sprintf("%.1f%%", c.Fraction*100),
		})
	}
	table.Render()
}

// RenderEntries writes the per-column decision log as a text table.
func RenderEntries(w io.Writer, entries []LogEntry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Column", "Strategy", "Confidence", "Before", "After", "Detail"})
	for _, e := range entries {
		table.Append([]string{
			e.Column,
			string(e.Strategy),
			fmt.Sprintf("%.2f", e.Confidence),
			fmt.Sprintf("%d", e.MissingBefore),
			e.FinalMissing(),
			entryDetail(e),
		})
	}
	table.Render()
}

// RenderSummary writes the per-strategy rollup as a text table.
func RenderSummary(w io.Writer, sums []StrategySummary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Strategy", "Columns", "Missing Cells"})
	for _, s := range sums {
		table.Append([]string{
			string(s.Strategy),
			fmt.Sprintf("%d", s.Columns),
			fmt.Sprintf("%d", s.Cells),
		})
	}
	table.Render()
}

// RenderQuality writes the distribution comparison as a text table.
func RenderQuality(w io.Writer, results []QualityResult) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Column", "Mean Shift", "Std Shift", "KS p", "Similar", "Score"})
	for _, r := range results {
		table.Append([]string{
			r.Column,
			fmt.Sprintf("%.4f", r.MeanRelDiff),
			fmt.Sprintf("%.4f", r.StdRelDiff),
			fmt.Sprintf("%.4f", r.KSPValue),
			fmt.Sprintf("%t", r.Similar),
			fmt.Sprintf("%.3f", r.Score),
		})
	}
	table.Render()
}

// EntriesFrame converts the decision log to a frame for export. The
// missing_after column is a string so dropped columns keep their
// marker.
func EntriesFrame(entries []LogEntry) *tm.Frame {
	f := tm.NewFrame(tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "dataset", Type: tm.KindString},
		{Name: "column", Type: tm.KindString},
		{Name: "type", Type: tm.KindString},
		{Name: "strategy", Type: tm.KindString},
		{Name: "confidence", Type: tm.KindFloat},
		{Name: "rationale", Type: tm.KindString},
		{Name: "missing_before", Type: tm.KindInt},
		{Name: "missing_after", Type: tm.KindString},
		{Name: "detail", Type: tm.KindString},
	}})
	for _, e := range entries {
		f.AppendNullRow()
		i := f.Rows() - 1
		f.SetCell(i, "dataset", e.Dataset)
		f.SetCell(i, "column", e.Column)
		f.SetCell(i, "type", e.Kind.String())
		f.SetCell(i, "strategy", string(e.Strategy))
		f.SetCell(i, "confidence", e.Confidence)
		f.SetCell(i, "rationale", e.Rationale)
		f.SetCell(i, "missing_before", e.MissingBefore)
		f.SetCell(i, "missing_after", e.FinalMissing())
		f.SetCell(i, "detail", entryDetail(e))
	}
	return f
}

// SummaryFrame converts the per-strategy rollup to a frame for export.
func SummaryFrame(sums []StrategySummary) *tm.Frame {
	f := tm.NewFrame(tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "strategy", Type: tm.KindString},
		{Name: "columns", Type: tm.KindInt},
		{Name: "missing_cells", Type: tm.KindInt},
	}})
	for _, s := range sums {
		f.AppendNullRow()
		i := f.Rows() - 1
		f.SetCell(i, "strategy", string(s.Strategy))
		f.SetCell(i, "columns", s.Columns)
		f.SetCell(i, "missing_cells", s.Cells)
	}
	return f
}

// QualityFrame converts the distribution comparison to a frame for
// export.
func QualityFrame(results []QualityResult) *tm.Frame {
	f := tm.NewFrame(tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "column", Type: tm.KindString},
		{Name: "mean_before", Type: tm.KindFloat},
		{Name: "mean_after", Type: tm.KindFloat},
		{Name: "mean_rel_diff", Type: tm.KindFloat},
		{Name: "std_before", Type: tm.KindFloat},
		{Name: "std_after", Type: tm.KindFloat},
		{Name: "std_rel_diff", Type: tm.KindFloat},
		{Name: "ks_statistic", Type: tm.KindFloat},
		{Name: "ks_p_value", Type: tm.KindFloat},
		{Name: "similar", Type: tm.KindBool},
		{Name: "score", Type: tm.KindFloat},
	}})
	for _, r := range results {
		f.AppendNullRow()
		i := f.Rows() - 1
		f.SetCell(i, "column", r.Column)
		f.SetCell(i, "mean_before", r.MeanBefore)
		f.SetCell(i, "mean_after", r.MeanAfter)
		f.SetCell(i, "mean_rel_diff", r.MeanRelDiff)
		f.SetCell(i, "std_before", r.StdBefore)
		f.SetCell(i, "std_after", r.StdAfter)
		f.SetCell(i, "std_rel_diff", r.StdRelDiff)
		f.SetCell(i, "ks_statistic", r.KSStatistic)
		f.SetCell(i, "ks_p_value", r.KSPValue)
		f.SetCell(i, "similar", r.Similar)
		f.SetCell(i, "score", r.Score)
	}
	return f
}
