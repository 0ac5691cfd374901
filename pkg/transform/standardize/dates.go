package standardize

import (
	"context"
	"time"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// DefaultDateLayouts are tried in order for each value. Day-first
// layouts come before month-first since the feeds are French.
var DefaultDateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
	time.RFC3339,
}

// ParseDate reads a string column and appends four derived columns:
// <col>_date (time), <col>_year, <col>_month and <col>_quarter (int).
// Values no layout accepts become nulls in all four and count as
// Failed. The source column is kept as-is.
type ParseDate struct {
	Column  string
	Layouts []string // nil means DefaultDateLayouts

	Parsed int
	Failed int
}

func (t *ParseDate) Name() string { return "parse_date" }

func (t *ParseDate) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Parsed = 0
	t.Failed = 0
	layouts := t.Layouts
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	c, ok := col.(*tm.StringColumn)
	if !ok {
		return f, nil
	}

	dates := tm.NewTimeColumn(t.Column+"_date", 0)
	years := tm.NewIntColumn(t.Column+"_year", 0)
	months := tm.NewIntColumn(t.Column+"_month", 0)
	quarters := tm.NewIntColumn(t.Column+"_quarter", 0)
	for i := 0; i < c.Len(); i++ {
		v, ok := c.Get(i)
		if !ok {
			dates.AppendNull()
			years.AppendNull()
			months.AppendNull()
			quarters.AppendNull()
			continue
		}
		parsed, ok := parseAny(v, layouts)
		if !ok {
			t.Failed++
			dates.AppendNull()
			years.AppendNull()
			months.AppendNull()
			quarters.AppendNull()
			continue
		}
		t.Parsed++
		dates.Append(parsed)
		years.Append(int64(parsed.Year()))
		months.Append(int64(parsed.Month()))
		quarters.Append(int64((int(parsed.Month())-1)/3 + 1))
	}
	for _, nc := range []tm.Column{dates, years, months, quarters} {
		if err := f.AddColumn(nc); err != nil {
			return f, err
		}
	}
	return f, nil
}

func parseAny(v string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
