package missing

import (
	"strconv"
	"time"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// DroppedMarker stands in for a missing count in reports when the
// column no longer exists.
const DroppedMarker = "column_dropped"

// LogEntry records what happened to one column: the decision, the
// outcome, and the strategy-specific details worth auditing.
type LogEntry struct {
	Dataset    string
	Column     string
	Kind       tm.Kind
	Strategy   Strategy
	Confidence float64
	Rationale  string

	MissingBefore int
	MissingAfter  int
	Dropped       bool

	// GroupColumn is set by group_median, ImputedValue by the
	// single-value strategies, Predictors and the CV fields by
	// ml_imputation. Note carries abort reasons.
	GroupColumn  string
	ImputedValue string
	Predictors   []string
	CVScore      float64
	CVComputed   bool
	Note         string
}

// FinalMissing renders the post-strategy missing count the way reports
// expect it, with dropped columns flagged by DroppedMarker.
func (e LogEntry) FinalMissing() string {
	if e.Dropped {
		return DroppedMarker
	}
	return strconv.Itoa(e.MissingAfter)
}

// Result is everything a resolution run produced: the decision log, the
// pre-run profile, and which columns were filled or removed.
type Result struct {
	RunID     string
	Dataset   string
	Rows      int
	StartedAt time.Time
	Duration  time.Duration

	Profile *Profile
	Entries []LogEntry

	// Filled lists columns whose missing count went down, Dropped the
	// columns removed outright. Indicator columns exist for every
	// column a fill strategy ran on.
	Filled  []string
	Dropped []string
}

// Entry looks up the log entry for a column.
func (r *Result) Entry(column string) (LogEntry, bool) {
	for _, e := range r.Entries {
		if e.Column == column {
			return e, true
		}
	}
	return LogEntry{}, false
}
