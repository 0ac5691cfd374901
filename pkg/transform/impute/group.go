package impute

import (
	"context"
	"strconv"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// Group fills missing cells from within-group statistics: the median of
// the rows sharing a group key for numeric columns, the group mode for
// categorical ones. GroupColumns are candidates scanned in order; the
// first one present in the frame is used for the whole column. Rows the
// group pass cannot reach (null group key, group with no observed
// values, no candidate available) are swept afterwards with the global
// statistic, computed after the group fills.
type Group struct {
	Column       string
	GroupColumns []string

	UsedGroup string
	Filled    int
	Swept     int
	Value     string
}

func (t *Group) Name() string { return "impute_group" }

func (t *Group) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.UsedGroup = ""
	t.Filled = 0
	t.Swept = 0
	t.Value = ""
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	for _, g := range t.GroupColumns {
		if g == t.Column {
			continue
		}
		if _, ok := f.ColumnByName(g); ok {
			t.UsedGroup = g
			break
		}
	}
	switch c := col.(type) {
	case *tm.FloatColumn:
		t.fillFloat(f, c)
	case *tm.IntColumn:
		t.fillInt(f, c)
	case *tm.StringColumn:
		t.fillString(f, c)
	case *tm.BoolColumn:
		t.fillBool(f, c)
	}
	return f, nil
}

func (t *Group) groupKeys(f *tm.Frame) []string {
	if t.UsedGroup == "" {
		return nil
	}
	keys := make([]string, f.Rows())
	for i := 0; i < f.Rows(); i++ {
		if k, ok := f.CellString(i, t.UsedGroup); ok {
			keys[i] = k
		}
	}
	return keys
}

func (t *Group) fillFloat(f *tm.Frame, c *tm.FloatColumn) {
	keys := t.groupKeys(f)
	if keys != nil {
		byGroup := map[string][]float64{}
		for i := 0; i < c.Len(); i++ {
			if keys[i] == "" || c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			byGroup[keys[i]] = append(byGroup[keys[i]], v)
		}
		for i := 0; i < c.Len(); i++ {
			if !c.IsNull(i) || keys[i] == "" {
				continue
			}
			vals := byGroup[keys[i]]
			if len(vals) == 0 {
				continue
			}
			c.Set(i, medianFloats(vals))
			t.Filled++
		}
	}
	vals := observedFloats(c)
	if len(vals) == 0 {
		return
	}
	med := medianFloats(vals)
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			c.Set(i, med)
			t.Filled++
			t.Swept++
		}
	}
	if t.Swept > 0 {
		t.Value = formatFloat(med)
	}
}

func (t *Group) fillInt(f *tm.Frame, c *tm.IntColumn) {
	keys := t.groupKeys(f)
	if keys != nil {
		byGroup := map[string][]int64{}
		for i := 0; i < c.Len(); i++ {
			if keys[i] == "" || c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			byGroup[keys[i]] = append(byGroup[keys[i]], v)
		}
		for i := 0; i < c.Len(); i++ {
			if !c.IsNull(i) || keys[i] == "" {
				continue
			}
			vals := byGroup[keys[i]]
			if len(vals) == 0 {
				continue
			}
			c.Set(i, medianInts(vals))
			t.Filled++
		}
	}
	vals := observedInts(c)
	if len(vals) == 0 {
		return
	}
	med := medianInts(vals)
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			c.Set(i, med)
			t.Filled++
			t.Swept++
		}
	}
	if t.Swept > 0 {
		t.Value = formatInt(med)
	}
}

func (t *Group) fillString(f *tm.Frame, c *tm.StringColumn) {
	keys := t.groupKeys(f)
	if keys != nil {
		byGroup := map[string]map[string]int{}
		for i := 0; i < c.Len(); i++ {
			if keys[i] == "" || c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			if byGroup[keys[i]] == nil {
				byGroup[keys[i]] = map[string]int{}
			}
			byGroup[keys[i]][v]++
		}
		for i := 0; i < c.Len(); i++ {
			if !c.IsNull(i) || keys[i] == "" {
				continue
			}
			counts := byGroup[keys[i]]
			if len(counts) == 0 {
				continue
			}
			c.Set(i, modeStrings(counts))
			t.Filled++
		}
	}
	counts := map[string]int{}
	for i := 0; i < c.Len(); i++ {
		if !c.IsNull(i) {
			v, _ := c.Get(i)
			counts[v]++
		}
	}
	// modeStrings falls back to FallbackLabel on an empty column
	mode := modeStrings(counts)
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			c.Set(i, mode)
			t.Filled++
			t.Swept++
		}
	}
	if t.Swept > 0 {
		t.Value = mode
	}
}

func (t *Group) fillBool(f *tm.Frame, c *tm.BoolColumn) {
	keys := t.groupKeys(f)
	majority := func(trues, falses int) bool { return trues > falses }
	if keys != nil {
		type tally struct{ trues, falses int }
		byGroup := map[string]*tally{}
		for i := 0; i < c.Len(); i++ {
			if keys[i] == "" || c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			if byGroup[keys[i]] == nil {
				byGroup[keys[i]] = &tally{}
			}
			if v {
				byGroup[keys[i]].trues++
			} else {
				byGroup[keys[i]].falses++
			}
		}
		for i := 0; i < c.Len(); i++ {
			if !c.IsNull(i) || keys[i] == "" {
				continue
			}
			tl := byGroup[keys[i]]
			if tl == nil {
				continue
			}
			c.Set(i, majority(tl.trues, tl.falses))
			t.Filled++
		}
	}
	var trues, falses, seen int
	for i := 0; i < c.Len(); i++ {
		if !c.IsNull(i) {
			v, _ := c.Get(i)
			if v {
				trues++
			} else {
				falses++
			}
			seen++
		}
	}
	if seen == 0 {
		return
	}
	best := majority(trues, falses)
	for i := 0; i < c.Len(); i++ {
		if c.IsNull(i) {
			c.Set(i, best)
			t.Filled++
			t.Swept++
		}
	}
	if t.Swept > 0 {
		t.Value = strconv.FormatBool(best)
	}
}

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
