package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// NumStats summarizes a numeric column. Quartiles use linear
// interpolation over the sorted observed values.
type NumStats struct {
	Count    int     `json:"count"`
	Nulls    int     `json:"nulls"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Sum      float64 `json:"sum"`
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Q1       float64 `json:"q1"`
	Median   float64 `json:"median"`
	Q3       float64 `json:"q3"`
	Outliers int     `json:"outliers"`

	// vals is row-aligned with NaN for nulls so correlations can pair
	// columns row by row.
	vals []float64
}

type BoolStats struct {
	Count int `json:"count"`
	Nulls int `json:"nulls"`
	True  int `json:"true"`
	False int `json:"false"`
}

type CatStats struct {
	Count       int
	Nulls       int
	Cardinality int
	TopK        int
	Freqs       map[string]int
}

type ColumnProfile struct {
	Name string
	Kind tm.Kind
	Num  *NumStats
	Bool *BoolStats
	Cat  *CatStats
}

// MissingRank is one row of the missingness ranking.
type MissingRank struct {
	Column   string  `json:"column"`
	Nulls    int     `json:"nulls"`
	Fraction float64 `json:"fraction"`
}

// Correlation is a flagged pair of numeric columns.
type Correlation struct {
	A string
	B string
	R float64
}

// Collector accumulates column statistics over one or more frames that
// share a schema. Feed frames with ConsumeFrame, then call Finalize
// before reading derived stats or reports.
type Collector struct {
	// ZThreshold and CorrThreshold default to the observatory settings
	// (2.5 and 0.9). Change them before the first ConsumeFrame.
	ZThreshold    float64
	CorrThreshold float64

	cols      []ColumnProfile
	index     map[string]int
	topK      int
	rows      int
	finalized bool
	corrs     []Correlation
}

func NewCollector(schema tm.Schema, topK int) *Collector {
	c := &Collector{
		ZThreshold:    2.5,
		CorrThreshold: 0.9,
		index:         make(map[string]int),
		topK:          topK,
	}
	c.cols = make([]ColumnProfile, len(schema.Columns))
	for i, cs := range schema.Columns {
		cp := ColumnProfile{Name: cs.Name, Kind: cs.Type}
		switch cs.Type {
		case tm.KindFloat, tm.KindInt:
			cp.Num = &NumStats{Min: math.Inf(1), Max: math.Inf(-1)}
		case tm.KindBool:
			cp.Bool = &BoolStats{}
		case tm.KindString, tm.KindTime:
			cp.Cat = &CatStats{TopK: topK, Freqs: make(map[string]int)}
		}
		c.cols[i] = cp
		c.index[cs.Name] = i
	}
	return c
}

func (c *Collector) ConsumeFrame(f *tm.Frame) {
	c.finalized = false
	c.rows += f.Rows()
	for _, cs := range f.Schema().Columns {
		idx, ok := c.index[cs.Name]
		if !ok {
			continue
		}
		cp := &c.cols[idx]
		col, _ := f.ColumnByName(cs.Name)
		switch cc := col.(type) {
		case *tm.FloatColumn:
			for i := 0; i < cc.Len(); i++ {
				v, ok := cc.Get(i)
				if !ok {
					cp.Num.Nulls++
					cp.Num.vals = append(cp.Num.vals, math.NaN())
					continue
				}
				cp.Num.observe(v)
			}
		case *tm.IntColumn:
			for i := 0; i < cc.Len(); i++ {
				v, ok := cc.Get(i)
				if !ok {
					cp.Num.Nulls++
					cp.Num.vals = append(cp.Num.vals, math.NaN())
					continue
				}
				cp.Num.observe(float64(v))
			}
		case *tm.BoolColumn:
			for i := 0; i < cc.Len(); i++ {
				v, ok := cc.Get(i)
				if !ok {
					cp.Bool.Nulls++
					continue
				}
				cp.Bool.Count++
				if v {
					cp.Bool.True++
				} else {
					cp.Bool.False++
				}
			}
		case *tm.StringColumn:
			for i := 0; i < cc.Len(); i++ {
				v, ok := cc.Get(i)
				if !ok {
					cp.Cat.Nulls++
					continue
				}
				cp.Cat.Count++
				cp.Cat.Freqs[v]++
			}
		case *tm.TimeColumn:
			for i := 0; i < cc.Len(); i++ {
				v, ok := cc.Get(i)
				if !ok {
					cp.Cat.Nulls++
					continue
				}
				cp.Cat.Count++
				cp.Cat.Freqs[v.String()]++
			}
		}
	}
}

func (s *NumStats) observe(v float64) {
	s.Count++
	if v < s.Min {
		s.Min = v
	}
	if v > s.Max {
		s.Max = v
	}
	s.Sum += v
	s.vals = append(s.vals, v)
}

// Finalize computes the derived statistics: mean, std, quartiles,
// z-score outlier counts, categorical cardinality and the correlation
// pairs. Safe to call more than once.
func (c *Collector) Finalize() {
	if c.finalized {
		return
	}
	c.finalized = true
	for i := range c.cols {
		cp := &c.cols[i]
		switch {
		case cp.Num != nil:
			finalizeNum(cp.Num, c.ZThreshold)
		case cp.Cat != nil:
			cp.Cat.Cardinality = len(cp.Cat.Freqs)
		}
	}
	c.corrs = c.correlate()
}

func finalizeNum(s *NumStats, zThreshold float64) {
	obs := make([]float64, 0, s.Count)
	for _, v := range s.vals {
		if !math.IsNaN(v) {
			obs = append(obs, v)
		}
	}
	if len(obs) == 0 {
		// json.Marshal rejects the infinities the running min/max start at
		s.Min, s.Max = 0, 0
		return
	}
	s.Mean = stat.Mean(obs, nil)
	if len(obs) > 1 {
		s.Std = stat.StdDev(obs, nil)
	}
	sort.Float64s(obs)
	s.Q1 = quantile(obs, 0.25)
	s.Median = quantile(obs, 0.5)
	s.Q3 = quantile(obs, 0.75)

	s.Outliers = 0
	if s.Std > 0 {
		for _, v := range obs {
			if math.Abs(v-s.Mean) > zThreshold*s.Std {
				s.Outliers++
			}
		}
	}
}

// quantile interpolates linearly over sorted values.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func (c *Collector) correlate() []Correlation {
	var out []Correlation
	for i := 0; i < len(c.cols); i++ {
		if c.cols[i].Num == nil {
			continue
		}
		for k := i + 1; k < len(c.cols); k++ {
			if c.cols[k].Num == nil {
				continue
			}
			r, ok := pairwiseCorrelation(c.cols[i].Num.vals, c.cols[k].Num.vals)
			if !ok {
				continue
			}
			if math.Abs(r) >= c.CorrThreshold {
				out = append(out, Correlation{A: c.cols[i].Name, B: c.cols[k].Name, R: r})
			}
		}
	}
	return out
}

// pairwiseCorrelation is the Pearson r over rows observed in both
// columns. It needs at least three shared rows and variance on both
// sides.
func pairwiseCorrelation(a, b []float64) (float64, bool) {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var xs, ys []float64
	for i := 0; i < n; i++ {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		xs = append(xs, a[i])
		ys = append(ys, b[i])
	}
	if len(xs) < 3 {
		return 0, false
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0, false
	}
	return r, true
}

// MissingRanking lists columns with nulls, worst first.
func (c *Collector) MissingRanking() []MissingRank {
	var out []MissingRank
	for _, cp := range c.cols {
		nulls := 0
		switch {
		case cp.Num != nil:
			nulls = cp.Num.Nulls
		case cp.Bool != nil:
			nulls = cp.Bool.Nulls
		case cp.Cat != nil:
			nulls = cp.Cat.Nulls
		}
		if nulls == 0 {
			continue
		}
		frac := 0.0
		if c.rows > 0 {
			frac = float64(nulls) / float64(c.rows)
		}
		out = append(out, MissingRank{Column: cp.Name, Nulls: nulls, Fraction: frac})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Fraction > out[j].Fraction })
	return out
}

// Correlations returns the pairs at or above CorrThreshold. Call
// Finalize first.
func (c *Collector) Correlations() []Correlation {
	return c.corrs
}

// Columns exposes the per-column profiles. Call Finalize first for the
// derived fields.
func (c *Collector) Columns() []ColumnProfile {
	return c.cols
}

func (c *Collector) ReportText() string {
	c.Finalize()
	var b strings.Builder
	b.WriteString("Profile Summary\n")
	for _, cp := range c.cols {
		fmt.Fprintf(&b, "- %s (%v): ", cp.Name, cp.Kind)
		switch {
		case cp.Num != nil:
			fmt.Fprintf(&b, "count=%d nulls=%d min=%.6g max=%.6g mean=%.6g std=%.6g q1=%.6g median=%.6g q3=%.6g outliers=%d\n",
				cp.Num.Count, cp.Num.Nulls, cp.Num.Min, cp.Num.Max, cp.Num.Mean, cp.Num.Std,
				cp.Num.Q1, cp.Num.Median, cp.Num.Q3, cp.Num.Outliers)
		case cp.Bool != nil:
			fmt.Fprintf(&b, "count=%d nulls=%d true=%d false=%d\n", cp.Bool.Count, cp.Bool.Nulls, cp.Bool.True, cp.Bool.False)
		case cp.Cat != nil:
			fmt.Fprintf(&b, "count=%d nulls=%d distinct=%d\n", cp.Cat.Count, cp.Cat.Nulls, cp.Cat.Cardinality)
			writeTop(&b, cp.Cat)
		}
	}
	if ranking := c.MissingRanking(); len(ranking) > 0 {
		b.WriteString("Missing ranking\n")
		for _, r := range ranking {
			fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", r.Column, r.Nulls, r.Fraction*100)
		}
	}
	if len(c.corrs) > 0 {
		b.WriteString("High correlations\n")
		for _, p := range c.corrs {
			fmt.Fprintf(&b, "- %s ~ %s: r=%.3f\n", p.A, p.B, p.R)
		}
	}
	return b.String()
}

type freqEntry struct {
	val string
	n   int
}

// rankedFreqs orders by count descending, value ascending on ties, and
// cuts to TopK.
func rankedFreqs(s *CatStats) []freqEntry {
	if s.TopK <= 0 || len(s.Freqs) == 0 {
		return nil
	}
	arr := make([]freqEntry, 0, len(s.Freqs))
	for k, v := range s.Freqs {
		arr = append(arr, freqEntry{k, v})
	}
	sort.Slice(arr, func(i, j int) bool {
		if arr[i].n != arr[j].n {
			return arr[i].n > arr[j].n
		}
		return arr[i].val < arr[j].val
	})
	if len(arr) > s.TopK {
		arr = arr[:s.TopK]
	}
	return arr
}

func writeTop(b *strings.Builder, s *CatStats) {
	for _, e := range rankedFreqs(s) {
		fmt.Fprintf(b, "  %q: %d\n", e.val, e.n)
	}
}

func topFreqs(s *CatStats) map[string]int {
	ranked := rankedFreqs(s)
	if len(ranked) == 0 {
		return nil
	}
	out := make(map[string]int, len(ranked))
	for _, e := range ranked {
		out[e.val] = e.n
	}
	return out
}

type JSONProfile struct {
	Rows         int             `json:"rows"`
	Columns      []JSONColumn    `json:"columns"`
	Missing      []MissingRank   `json:"missing,omitempty"`
	Correlations []JSONCorrelate `json:"correlations,omitempty"`
}

type JSONColumn struct {
	Name string     `json:"name"`
	Kind string     `json:"kind"`
	Num  *NumStats  `json:"num,omitempty"`
	Bool *BoolStats `json:"bool,omitempty"`
	Cat  *JSONCat   `json:"cat,omitempty"`
}

type JSONCat struct {
	Count       int            `json:"count"`
	Nulls       int            `json:"nulls"`
	Cardinality int            `json:"cardinality"`
	Top         map[string]int `json:"top,omitempty"`
}

type JSONCorrelate struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

func (c *Collector) ReportJSON() JSONProfile {
	c.Finalize()
	out := JSONProfile{Rows: c.rows, Columns: make([]JSONColumn, 0, len(c.cols))}
	for _, cp := range c.cols {
		jc := JSONColumn{Name: cp.Name, Kind: cp.Kind.String()}
		switch {
		case cp.Num != nil:
			jc.Num = cp.Num
		case cp.Bool != nil:
			jc.Bool = cp.Bool
		case cp.Cat != nil:
			jc.Cat = &JSONCat{
				Count:       cp.Cat.Count,
				Nulls:       cp.Cat.Nulls,
				Cardinality: cp.Cat.Cardinality,
				Top:         topFreqs(cp.Cat),
			}
		}
		out.Columns = append(out.Columns, jc)
	}
	out.Missing = c.MissingRanking()
	out.Correlations = make([]JSONCorrelate, 0, len(c.corrs))
	for _, p := range c.corrs {
		out.Correlations = append(out.Correlations, JSONCorrelate{A: p.A, B: p.B, R: p.R})
	}
	return out
}
