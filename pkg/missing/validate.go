package missing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// pSimilar is the KS p-value above which two distributions count as
// statistically similar.
const pSimilar = 0.05

// QualityResult compares one numeric column before and after
// resolution. Score is in [0, 1], where 1 means the distribution is
// untouched.
type QualityResult struct {
	Column string

	MeanBefore float64
	MeanAfter  float64
	StdBefore  float64
	StdAfter   float64

	MeanRelDiff float64
	StdRelDiff  float64

	KSStatistic float64
	KSPValue    float64
	Similar     bool

	Score float64
}

// ValidateQuality measures how much each numeric column's distribution
// moved between the two frames, comparing observed (non-null) values on
// both sides. Columns dropped from after, non-numeric columns, and
// columns with fewer than two observed values are skipped. The score
// weighs relative mean shift and relative spread shift at 0.4 each and
// distribution similarity at 0.2.
func ValidateQuality(before, after *tm.Frame) []QualityResult {
	var out []QualityResult
	for _, cs := range before.Schema().Columns {
		if cs.Type.Class() != tm.ClassNumeric {
			continue
		}
		acol, ok := after.ColumnByName(cs.Name)
		if !ok || acol.Kind().Class() != tm.ClassNumeric {
			continue
		}
		bvals := numericValues(before, cs.Name)
		avals := numericValues(after, cs.Name)
		if len(bvals) < 2 || len(avals) < 2 {
			continue
		}
		r := QualityResult{
			Column:     cs.Name,
			MeanBefore: stat.Mean(bvals, nil),
			MeanAfter:  stat.Mean(avals, nil),
			StdBefore:  stat.StdDev(bvals, nil),
			StdAfter:   stat.StdDev(avals, nil),
		}
		r.MeanRelDiff = math.Abs(r.MeanAfter-r.MeanBefore) / (math.Abs(r.MeanBefore) + 1e-10)
		r.StdRelDiff = math.Abs(r.StdAfter-r.StdBefore) / (r.StdBefore + 1e-10)

		sort.Float64s(bvals)
		sort.Float64s(avals)
		r.KSStatistic = stat.KolmogorovSmirnov(bvals, nil, avals, nil)
		r.KSPValue = ksPValue(r.KSStatistic, len(bvals), len(avals))
		r.Similar = r.KSPValue > pSimilar

		r.Score = 0.4*(1-math.Min(r.MeanRelDiff, 1)) + 0.4*(1-math.Min(r.StdRelDiff, 1))
		if r.Similar {
			r.Score += 0.2
		}
		out = append(out, r)
	}
	return out
}

// OverallScore averages per-column scores. With no comparable columns
// there is no evidence of degradation, so the result is 1.
func OverallScore(results []QualityResult) float64 {
	if len(results) == 0 {
		return 1
	}
	sum := 0.0
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}

// numericValues collects the observed values of a numeric column as
// floats, in row order.
func numericValues(f *tm.Frame, name string) []float64 {
	col, ok := f.ColumnByName(name)
	if !ok {
		return nil
	}
	var out []float64
	switch c := col.(type) {
	case *tm.FloatColumn:
		for i := 0; i < c.Len(); i++ {
			if v, ok := c.Get(i); ok {
				out = append(out, v)
			}
		}
	case *tm.IntColumn:
		for i := 0; i < c.Len(); i++ {
			if v, ok := c.Get(i); ok {
				out = append(out, float64(v))
			}
		}
	}
	return out
}

// ksPValue is the asymptotic two-sample significance of a KS statistic,
// Q(lambda) with the small-sample correction from Numerical Recipes.
// The series alternates and is truncated once it settles; a series that
// never settles (d near zero) means the distributions are
// indistinguishable, so the probability saturates at 1.
func ksPValue(d float64, n1, n2 int) float64 {
	if n1 == 0 || n2 == 0 {
		return 1
	}
	ne := float64(n1) * float64(n2) / float64(n1+n2)
	lam := (math.Sqrt(ne) + 0.12 + 0.11/math.Sqrt(ne)) * d
	a2 := -2 * lam * lam
	sum := 0.0
	fac := 2.0
	termBF := 0.0
	for j := 1; j <= 100; j++ {
		term := fac * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= 0.001*termBF || math.Abs(term) <= 1e-8*math.Abs(sum) {
			if sum < 0 {
				return 0
			}
			if sum > 1 {
				return 1
			}
			return sum
		}
		fac = -fac
		termBF = math.Abs(term)
	}
	return 1
}
