package impute

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/sjwhitworth/golearn/base"
	"github.com/sjwhitworth/golearn/trees"

	glearn "github.com/santedata/tablemend/adapters/golearn"
	"github.com/santedata/tablemend/pkg/encode"
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

const (
	DefaultForestTrees       = 100
	DefaultForestSeed        = 42
	DefaultCVFolds           = 5
	DefaultMinPredictors     = 2
	DefaultMaxCardinality    = 20
	DefaultPredictorCoverage = 0.5

	// label given to null cells of categorical predictors so absence
	// stays visible to the model
	predictorMissingLabel = "missing"
)

// Forest predicts missing cells from the other columns with a bagged
// ensemble of CART trees: regression trees for numeric targets,
// classification trees for categorical ones, bootstrap draws driven by
// a fixed seed. Columns qualify as predictors when more than Coverage
// of their cells are observed; string predictors also need cardinality
// below MaxCardinality and go through a LabelEncoder, with nulls as
// their own label. Numeric predictor nulls count as zero.
//
// The model never takes the run down: too few predictors, an
// unsupported target kind or an internal model failure set Aborted and
// leave the column untouched.
type Forest struct {
	Column         string
	Trees          int
	Seed           int64
	CVFolds        int
	MinPredictors  int
	MaxCardinality int
	Coverage       float64

	Aborted     bool
	AbortReason string
	Predictors  []string
	Filled      int
	CVScore     float64
	CVComputed  bool
}

func (t *Forest) Name() string { return "impute_forest" }

func (t *Forest) ntrees() int {
	if t.Trees <= 0 {
		return DefaultForestTrees
	}
	return t.Trees
}

func (t *Forest) seed() int64 {
	if t.Seed == 0 {
		return DefaultForestSeed
	}
	return t.Seed
}

func (t *Forest) folds() int {
	if t.CVFolds <= 0 {
		return DefaultCVFolds
	}
	return t.CVFolds
}

func (t *Forest) minPredictors() int {
	if t.MinPredictors <= 0 {
		return DefaultMinPredictors
	}
	return t.MinPredictors
}

func (t *Forest) maxCardinality() int {
	if t.MaxCardinality <= 0 {
		return DefaultMaxCardinality
	}
	return t.MaxCardinality
}

func (t *Forest) coverage() float64 {
	if t.Coverage <= 0 {
		return DefaultPredictorCoverage
	}
	return t.Coverage
}

func (t *Forest) abort(reason string) {
	t.Aborted = true
	t.AbortReason = reason
}

type forestFeature struct {
	name string
	enc  *encode.LabelEncoder // nil for numeric and bool features
}

func (t *Forest) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Aborted = false
	t.AbortReason = ""
	t.Predictors = nil
	t.Filled = 0
	t.CVScore = 0
	t.CVComputed = false

	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	var missRows, trainRows []int
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			missRows = append(missRows, i)
		} else {
			trainRows = append(trainRows, i)
		}
	}
	if len(missRows) == 0 {
		return f, nil
	}
	if len(trainRows) == 0 {
		t.abort("no observed values to train on")
		return f, nil
	}
	if col.Kind() == tm.KindTime {
		t.abort("time columns are not predictable targets")
		return f, nil
	}

	feats := t.selectPredictors(f)
	if len(feats) < t.minPredictors() {
		t.abort(fmt.Sprintf("%d usable predictors, need at least %d", len(feats), t.minPredictors()))
		return f, nil
	}
	t.Predictors = make([]string, len(feats))
	for i, ft := range feats {
		t.Predictors[i] = ft.name
	}

	// row-major feature matrices for the observed and missing rows
	byFeat := make([][]float64, len(feats))
	for i, ft := range feats {
		byFeat[i] = t.featureValues(f, ft)
	}
	gather := func(rows []int) [][]float64 {
		out := make([][]float64, len(rows))
		for i, r := range rows {
			vec := make([]float64, len(feats))
			for j := range feats {
				vec[j] = byFeat[j][r]
			}
			out[i] = vec
		}
		return out
	}
	xTrain := gather(trainRows)
	xMiss := gather(missRows)

	switch c := col.(type) {
	case *tm.FloatColumn:
		y := make([]float64, len(trainRows))
		for i, r := range trainRows {
			v, _ := c.Get(r)
			y[i] = v
		}
		preds, err := t.baggedRegression(xTrain, y, xMiss)
		if err != nil {
			t.abort(err.Error())
			return f, nil
		}
		for i, r := range missRows {
			c.Set(r, preds[i])
		}
		t.Filled = len(missRows)
		t.CVScore, t.CVComputed = t.regressionCV(xTrain, y)
	case *tm.IntColumn:
		y := make([]float64, len(trainRows))
		for i, r := range trainRows {
			v, _ := c.Get(r)
			y[i] = float64(v)
		}
		preds, err := t.baggedRegression(xTrain, y, xMiss)
		if err != nil {
			t.abort(err.Error())
			return f, nil
		}
		for i, r := range missRows {
			c.Set(r, int64(math.Round(preds[i])))
		}
		t.Filled = len(missRows)
		t.CVScore, t.CVComputed = t.regressionCV(xTrain, y)
	default:
		labels := make([]string, len(trainRows))
		for i, r := range trainRows {
			s, _ := f.CellString(r, t.Column)
			labels[i] = s
		}
		enc := encode.NewLabelEncoder()
		codes := enc.FitTransform(labels)
		y := make([]float64, len(codes))
		for i, code := range codes {
			y[i] = float64(code)
		}
		preds, err := t.baggedClassification(xTrain, y, xMiss, enc.Len())
		if err != nil {
			t.abort(err.Error())
			return f, nil
		}
		for i, r := range missRows {
			label, ok := enc.Inverse(preds[i])
			if !ok {
				continue
			}
			switch cc := col.(type) {
			case *tm.StringColumn:
				cc.Set(r, label)
			case *tm.BoolColumn:
				cc.Set(r, label == "true")
			}
		}
		t.Filled = len(missRows)
		t.CVScore, t.CVComputed = t.classificationCV(xTrain, y, enc.Len())
	}
	return f, nil
}

// selectPredictors keeps schema order so runs with the same frame pick
// the same features.
func (t *Forest) selectPredictors(f *tm.Frame) []forestFeature {
	rows := f.Rows()
	var feats []forestFeature
	for _, cs := range f.Schema().Columns {
		if cs.Name == t.Column {
			continue
		}
		nonNull := rows - f.NullCount(cs.Name)
		if float64(nonNull) <= t.coverage()*float64(rows) {
			continue
		}
		switch cs.Type {
		case tm.KindFloat, tm.KindInt, tm.KindBool:
			feats = append(feats, forestFeature{name: cs.Name})
		case tm.KindString:
			col, _ := f.ColumnByName(cs.Name)
			c := col.(*tm.StringColumn)
			distinct := map[string]struct{}{}
			for i := 0; i < c.Len(); i++ {
				if v, ok := c.Get(i); ok {
					distinct[v] = struct{}{}
				}
			}
			if len(distinct) == 0 || len(distinct) >= t.maxCardinality() {
				continue
			}
			vals := make([]string, 0, len(distinct)+1)
			for v := range distinct {
				vals = append(vals, v)
			}
			vals = append(vals, predictorMissingLabel)
			enc := encode.NewLabelEncoder()
			enc.Fit(vals)
			feats = append(feats, forestFeature{name: cs.Name, enc: enc})
		}
	}
	return feats
}

func (t *Forest) featureValues(f *tm.Frame, ft forestFeature) []float64 {
	col, _ := f.ColumnByName(ft.name)
	out := make([]float64, col.Len())
	switch c := col.(type) {
	case *tm.FloatColumn:
		for i := 0; i < c.Len(); i++ {
			if v, ok := c.Get(i); ok {
				out[i] = v
			}
		}
	case *tm.IntColumn:
		for i := 0; i < c.Len(); i++ {
			if v, ok := c.Get(i); ok {
				out[i] = float64(v)
			}
		}
	case *tm.BoolColumn:
		for i := 0; i < c.Len(); i++ {
			if v, ok := c.Get(i); ok && v {
				out[i] = 1
			}
		}
	case *tm.StringColumn:
		for i := 0; i < c.Len(); i++ {
			v, ok := c.Get(i)
			if !ok {
				v = predictorMissingLabel
			}
			if code, ok := ft.enc.Transform(v); ok {
				out[i] = float64(code)
			}
		}
	}
	return out
}

// instances assembles a golearn grid from a feature matrix with the
// target riding as a float class attribute. Classification targets pass
// their label codes as floats.
func (t *Forest) instances(x [][]float64, y []float64) (*base.DenseInstances, error) {
	names := append(append([]string(nil), t.Predictors...), t.Column)
	cols := make([]tm.ColumnSchema, len(names))
	for i, n := range names {
		cols[i] = tm.ColumnSchema{Name: n, Type: tm.KindFloat, Nullable: true}
	}
	fr := tm.NewFrame(tm.Schema{Columns: cols})
	for r := range x {
		fr.AppendNullRow()
		for j, v := range x[r] {
			_ = fr.SetCell(r, names[j], v)
		}
		_ = fr.SetCell(r, t.Column, y[r])
	}
	return glearn.ToDenseInstances(fr, t.Column)
}

func bootstrap(rng *rand.Rand, x [][]float64, y []float64) ([][]float64, []float64) {
	bx := make([][]float64, len(x))
	by := make([]float64, len(y))
	for i := range x {
		j := rng.Intn(len(x))
		bx[i] = x[j]
		by[i] = y[j]
	}
	return bx, by
}

// baggedRegression averages per-tree predictions for the query rows.
// golearn can panic on degenerate grids, and a model failure must leave
// the column untouched, so the recover here converts both into errors.
func (t *Forest) baggedRegression(x [][]float64, y []float64, xq [][]float64) (preds []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			preds = nil
			err = fmt.Errorf("regression forest: %v", r)
		}
	}()
	queries, err := t.instances(xq, make([]float64, len(xq)))
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(t.seed()))
	sum := make([]float64, len(xq))
	fitted := 0
	for b := 0; b < t.ntrees(); b++ {
		bx, by := bootstrap(rng, x, y)
		inst, err := t.instances(bx, by)
		if err != nil {
			return nil, err
		}
		tree := trees.NewDecisionTreeRegressor("mse", -1)
		if err := tree.Fit(inst); err != nil {
			continue
		}
		out := tree.Predict(queries)
		if len(out) != len(xq) {
			continue
		}
		for i, v := range out {
			sum[i] += v
		}
		fitted++
	}
	if fitted == 0 {
		return nil, errors.New("no regression tree could be fitted")
	}
	preds = make([]float64, len(xq))
	for i := range sum {
		preds[i] = sum[i] / float64(fitted)
	}
	return preds, nil
}

// baggedClassification majority-votes label codes for the query rows,
// smaller code on ties.
func (t *Forest) baggedClassification(x [][]float64, y []float64, xq [][]float64, classes int) (preds []int, err error) {
	defer func() {
		if r := recover(); r != nil {
			preds = nil
			err = fmt.Errorf("classification forest: %v", r)
		}
	}()
	if classes == 0 {
		return nil, errors.New("no classes observed")
	}
	labels := make([]int64, classes)
	for i := range labels {
		labels[i] = int64(i)
	}
	queries, err := t.instances(xq, make([]float64, len(xq)))
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(t.seed()))
	votes := make([][]int, len(xq))
	for i := range votes {
		votes[i] = make([]int, classes)
	}
	fitted := 0
	for b := 0; b < t.ntrees(); b++ {
		bx, by := bootstrap(rng, x, y)
		inst, err := t.instances(bx, by)
		if err != nil {
			return nil, err
		}
		tree := trees.NewDecisionTreeClassifier("gini", -1, labels)
		if err := tree.Fit(inst); err != nil {
			continue
		}
		out := tree.Predict(queries)
		if len(out) != len(xq) {
			continue
		}
		for i, code := range out {
			if code >= 0 && int(code) < classes {
				votes[i][code]++
			}
		}
		fitted++
	}
	if fitted == 0 {
		return nil, errors.New("no classification tree could be fitted")
	}
	preds = make([]int, len(xq))
	for i, vs := range votes {
		best, bestn := 0, -1
		for code, n := range vs {
			if n > bestn {
				best, bestn = code, n
			}
		}
		preds[i] = best
	}
	return preds, nil
}

// foldSplits deals row indices into k folds after a seeded shuffle.
func (t *Forest) foldSplits(n int) [][]int {
	k := t.folds()
	if n < k*2 {
		return nil
	}
	rng := rand.New(rand.NewSource(t.seed() + 1))
	idx := rng.Perm(n)
	folds := make([][]int, k)
	for i, r := range idx {
		folds[i%k] = append(folds[i%k], r)
	}
	return folds
}

// regressionCV reports the mean out-of-fold R^2; informational only.
func (t *Forest) regressionCV(x [][]float64, y []float64) (float64, bool) {
	folds := t.foldSplits(len(x))
	if folds == nil {
		return 0, false
	}
	var scores []float64
	for k := range folds {
		test := folds[k]
		var trainX [][]float64
		var trainY []float64
		for j, fold := range folds {
			if j == k {
				continue
			}
			for _, r := range fold {
				trainX = append(trainX, x[r])
				trainY = append(trainY, y[r])
			}
		}
		testX := make([][]float64, len(test))
		testY := make([]float64, len(test))
		for i, r := range test {
			testX[i] = x[r]
			testY[i] = y[r]
		}
		preds, err := t.baggedRegression(trainX, trainY, testX)
		if err != nil {
			return 0, false
		}
		var mean float64
		for _, v := range testY {
			mean += v
		}
		mean /= float64(len(testY))
		var ssRes, ssTot float64
		for i, v := range testY {
			ssRes += (v - preds[i]) * (v - preds[i])
			ssTot += (v - mean) * (v - mean)
		}
		if ssTot == 0 {
			continue
		}
		scores = append(scores, 1-ssRes/ssTot)
	}
	if len(scores) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores)), true
}

// classificationCV reports the mean out-of-fold accuracy.
func (t *Forest) classificationCV(x [][]float64, y []float64, classes int) (float64, bool) {
	folds := t.foldSplits(len(x))
	if folds == nil {
		return 0, false
	}
	var scores []float64
	for k := range folds {
		test := folds[k]
		var trainX [][]float64
		var trainY []float64
		for j, fold := range folds {
			if j == k {
				continue
			}
			for _, r := range fold {
				trainX = append(trainX, x[r])
				trainY = append(trainY, y[r])
			}
		}
		testX := make([][]float64, len(test))
		testY := make([]float64, len(test))
		for i, r := range test {
			testX[i] = x[r]
			testY[i] = y[r]
		}
		preds, err := t.baggedClassification(trainX, trainY, testX, classes)
		if err != nil {
			return 0, false
		}
		correct := 0
		for i, code := range preds {
			if float64(code) == testY[i] {
				correct++
			}
		}
		scores = append(scores, float64(correct)/float64(len(test)))
	}
	if len(scores) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores)), true
}
