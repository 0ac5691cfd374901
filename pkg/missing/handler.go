package missing

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	tm "github.com/santedata/tablemend/pkg/tablemend"
	"github.com/santedata/tablemend/pkg/transform/impute"
)

// IndicatorSuffix is appended to a column name to form its missingness
// indicator column.
const IndicatorSuffix = "_was_missing"

// DefaultGroupColumns are the grouping candidates for group_median, in
// scan order. They match the stratification columns of the observatory
// extracts this pipeline usually sees.
var DefaultGroupColumns = []string{"age_group", "sexe", "region_code", "age_category"}

// MLOptions tunes ml_imputation. Zero values mean the forest defaults.
type MLOptions struct {
	Trees          int
	Seed           int64
	CVFolds        int
	MinPredictors  int
	MaxCardinality int
	Coverage       float64
}

// Handler runs the full resolution pass over a frame: analyze
// missingness, decide a strategy per column from the policy table,
// execute it, and attach indicator columns from the pre-fill masks.
type Handler struct {
	Policy       *Policy
	GroupColumns []string
	ML           MLOptions
	Logger       *zap.Logger
}

// NewHandler returns a Handler with the default policy and grouping
// candidates. The logger defaults to a no-op until set.
func NewHandler() *Handler {
	return &Handler{
		Policy:       DefaultPolicy(),
		GroupColumns: append([]string(nil), DefaultGroupColumns...),
	}
}

func (h *Handler) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}

func (h *Handler) groupColumns() []string {
	if len(h.GroupColumns) == 0 {
		return DefaultGroupColumns
	}
	return h.GroupColumns
}

// Process resolves every column with missing values in f, mutating it
// in place. Columns are visited in schema order; decisions use the
// missing fractions measured before any strategy runs. The returned
// Result holds the decision log and the pre-run profile.
func (h *Handler) Process(ctx context.Context, f *tm.Frame, dataset string) (*Result, error) {
	if f == nil {
		return nil, errors.New("nil frame")
	}
	pol := h.Policy
	if pol == nil {
		pol = DefaultPolicy()
	}
	start := time.Now()
	prof := Analyze(f, dataset)
	res := &Result{
		RunID:     uuid.New().String(),
		Dataset:   dataset,
		Rows:      f.Rows(),
		StartedAt: start,
		Profile:   prof,
	}
	log := h.logger().With(zap.String("run_id", res.RunID), zap.String("dataset", dataset))
	log.Info("Missing value resolution started",
		zap.Int("rows", f.Rows()),
		zap.Int("columns_with_missing", len(prof.Columns)),
		zap.Int("missing_cells", prof.TotalMissing()))

	cols := append([]tm.ColumnSchema(nil), f.Schema().Columns...)
	for _, cs := range cols {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		cm, ok := prof.ByColumn(cs.Name)
		if !ok {
			continue
		}
		dec, ok := pol.Decide(cm.Fraction, cm.Class)
		if !ok {
			log.Warn("No strategy for column",
				zap.String("column", cs.Name),
				zap.String("bucket", dec.Bucket.String()),
				zap.String("class", cm.Class.String()))
			continue
		}
		log.Info("Strategy selected",
			zap.String("column", cs.Name),
			zap.String("strategy", string(dec.Strategy)),
			zap.Float64("confidence", dec.Confidence),
			zap.Float64("missing_fraction", cm.Fraction),
			zap.String("bucket", dec.Bucket.String()))

		entry := LogEntry{
			Dataset:       dataset,
			Column:        cs.Name,
			Kind:          cs.Type,
			Strategy:      dec.Strategy,
			Confidence:    dec.Confidence,
			Rationale:     dec.Rationale,
			MissingBefore: cm.Missing,
		}
		if err := h.execute(ctx, f, dec.Strategy, &entry, log); err != nil {
			return nil, err
		}
		if entry.Dropped {
			res.Dropped = append(res.Dropped, cs.Name)
		} else {
			entry.MissingAfter = f.NullCount(cs.Name)
			if entry.MissingAfter < entry.MissingBefore {
				res.Filled = append(res.Filled, cs.Name)
			}
		}
		res.Entries = append(res.Entries, entry)
	}

	h.attachIndicators(f, prof, res, cols, log)

	res.Duration = time.Since(start)
	log.Info("Missing value resolution finished",
		zap.Int("columns_filled", len(res.Filled)),
		zap.Int("columns_dropped", len(res.Dropped)),
		zap.Duration("elapsed", res.Duration))
	return res, nil
}

func (h *Handler) execute(ctx context.Context, f *tm.Frame, s Strategy, entry *LogEntry, log *zap.Logger) error {
	var err error
	switch s {
	case StrategyDropColumn:
		tr := &impute.Drop{Column: entry.Column}
		_, err = tr.Apply(ctx, f)
		entry.Dropped = tr.Dropped
		log.Info("Column dropped", zap.String("column", entry.Column))
	case StrategyMode:
		tr := &impute.Mode{Column: entry.Column}
		_, err = tr.Apply(ctx, f)
		entry.ImputedValue = tr.Value
	case StrategyMedian:
		tr := &impute.Median{Column: entry.Column}
		_, err = tr.Apply(ctx, f)
		if tr.Filled > 0 {
			entry.ImputedValue = strconv.FormatFloat(tr.Value, 'g', -1, 64)
		}
	case StrategyMissingCategory:
		tr := &impute.MissingCategory{Column: entry.Column}
		_, err = tr.Apply(ctx, f)
		entry.ImputedValue = impute.MissingLabel
	case StrategyGroupMedian:
		tr := &impute.Group{Column: entry.Column, GroupColumns: h.groupColumns()}
		_, err = tr.Apply(ctx, f)
		entry.GroupColumn = tr.UsedGroup
		entry.ImputedValue = tr.Value
		if tr.UsedGroup == "" {
			log.Warn("No grouping column available, global statistic used",
				zap.String("column", entry.Column))
		}
	case StrategyML:
		tr := &impute.Forest{
			Column:         entry.Column,
			Trees:          h.ML.Trees,
			Seed:           h.ML.Seed,
			CVFolds:        h.ML.CVFolds,
			MinPredictors:  h.ML.MinPredictors,
			MaxCardinality: h.ML.MaxCardinality,
			Coverage:       h.ML.Coverage,
		}
		_, err = tr.Apply(ctx, f)
		if tr.Aborted {
			entry.Note = tr.AbortReason
			log.Warn("Model imputation aborted",
				zap.String("column", entry.Column),
				zap.String("reason", tr.AbortReason))
		} else {
			entry.Predictors = tr.Predictors
			entry.CVScore = tr.CVScore
			entry.CVComputed = tr.CVComputed
			fields := []zap.Field{
				zap.String("column", entry.Column),
				zap.Strings("predictors", tr.Predictors),
				zap.Int("filled", tr.Filled),
			}
			if tr.CVComputed {
				fields = append(fields, zap.Float64("cv_score", tr.CVScore))
			}
			log.Info("Model imputation done", fields...)
		}
	default:
		log.Warn("Unknown strategy", zap.String("strategy", string(s)))
	}
	return err
}

// attachIndicators appends one boolean column per column a fill
// strategy ran on, in schema order, marking the rows that were null
// before the run. Dropped columns get none.
func (h *Handler) attachIndicators(f *tm.Frame, prof *Profile, res *Result, cols []tm.ColumnSchema, log *zap.Logger) {
	for _, cs := range cols {
		e, ok := res.Entry(cs.Name)
		if !ok || e.Dropped {
			continue
		}
		mask := prof.Mask(cs.Name)
		if mask == nil {
			continue
		}
		ind := tm.NewBoolColumn(cs.Name+IndicatorSuffix, 0)
		for _, m := range mask {
			ind.Append(m)
		}
		if err := f.AddColumn(ind); err != nil {
			log.Warn("Indicator column skipped",
				zap.String("column", cs.Name),
				zap.Error(err))
		}
	}
}
