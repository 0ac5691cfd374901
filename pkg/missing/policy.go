package missing

import (
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// Strategy names a way of resolving a column's missing values. The
// values appear verbatim in logs, reports and the audit trail.
type Strategy string

const (
	StrategyDropColumn      Strategy = "drop_column"
	StrategyMode            Strategy = "mode_imputation"
	StrategyMedian          Strategy = "median_imputation"
	StrategyMissingCategory Strategy = "create_missing_category"
	StrategyGroupMedian     Strategy = "group_median"
	StrategyML              Strategy = "ml_imputation"
)

// Bucket is the missing-fraction band a column falls into.
type Bucket int

const (
	BucketLow Bucket = iota
	BucketMiddle
	BucketHigh
)

func (b Bucket) String() string {
	switch b {
	case BucketLow:
		return "low"
	case BucketMiddle:
		return "middle"
	default:
		return "high"
	}
}

// Proposal is one candidate strategy with its confidence and the
// reasoning that goes into the decision log.
type Proposal struct {
	Strategy   Strategy
	Confidence float64
	Rationale  string
}

// Decision is the winning proposal for a column, with everything that
// was weighed against it.
type Decision struct {
	Strategy   Strategy
	Confidence float64
	Rationale  string
	Bucket     Bucket
	Considered []Proposal
}

// Policy is the decision table mapping (missing-fraction bucket, column
// class) to candidate strategies. It is plain data on purpose: callers
// can print it, tweak a confidence, or swap a rule without touching the
// selection code.
type Policy struct {
	// MidThreshold and DropThreshold bound the middle bucket, which
	// holds both of them: fraction < MidThreshold is low, fraction >
	// DropThreshold is high.
	MidThreshold  float64
	DropThreshold float64

	Rules map[Bucket]map[tm.Class][]Proposal
}

// DefaultPolicy returns the standard table. Highest confidence wins;
// ties resolve to the earlier proposal.
func DefaultPolicy() *Policy {
	drop := Proposal{StrategyDropColumn, 0.1, "mostly holes, not worth reconstructing"}
	return &Policy{
		MidThreshold:  0.3,
		DropThreshold: 0.7,
		Rules: map[Bucket]map[tm.Class][]Proposal{
			BucketHigh: {
				tm.ClassNumeric:     {drop},
				tm.ClassCategorical: {drop},
			},
			BucketMiddle: {
				tm.ClassCategorical: {
					{StrategyMode, 0.6, "moderate gaps, most frequent value is a safe default"},
					{StrategyMissingCategory, 0.8, "moderate gaps, absence itself is informative"},
				},
				tm.ClassNumeric: {
					{StrategyGroupMedian, 0.7, "moderate gaps, group medians preserve structure"},
					{StrategyML, 0.5, "moderate gaps, model reconstruction is possible"},
				},
			},
			BucketLow: {
				tm.ClassCategorical: {
					{StrategyML, 0.8, "few gaps, enough signal to predict the category"},
					{StrategyMode, 0.6, "few gaps, most frequent value is a safe default"},
				},
				tm.ClassNumeric: {
					{StrategyML, 0.9, "few gaps, enough signal to predict the value"},
					{StrategyGroupMedian, 0.7, "few gaps, group medians preserve structure"},
					{StrategyMedian, 0.5, "few gaps, global median barely shifts the distribution"},
				},
			},
		},
	}
}

// BucketOf bands a missing fraction. Both thresholds belong to the
// middle bucket.
func (p *Policy) BucketOf(fraction float64) Bucket {
	if fraction > p.DropThreshold {
		return BucketHigh
	}
	if fraction >= p.MidThreshold {
		return BucketMiddle
	}
	return BucketLow
}

// Decide picks the strategy for a column. The second return is false
// when the table has no proposals for the bucket and class.
func (p *Policy) Decide(fraction float64, class tm.Class) (Decision, bool) {
	b := p.BucketOf(fraction)
	props := p.Rules[b][class]
	if len(props) == 0 {
		return Decision{Bucket: b}, false
	}
	best := props[0]
	for _, pr := range props[1:] {
		if pr.Confidence > best.Confidence {
			best = pr
		}
	}
	return Decision{
		Strategy:   best.Strategy,
		Confidence: best.Confidence,
		Rationale:  best.Rationale,
		Bucket:     b,
		Considered: append([]Proposal(nil), props...),
	}, true
}
