package standardize

import (
	"context"
	"regexp"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

type RegexReplace struct {
	Column  string
	Pattern string
	Replace string

	Changed int
	re      *regexp.Regexp
}

func (t *RegexReplace) Name() string { return "regex_replace" }

func (t *RegexReplace) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Changed = 0
	if t.re == nil {
		re, err := regexp.Compile(t.Pattern)
		if err != nil {
			return f, err
		}
		t.re = re
	}
	col, ok := f.ColumnByName(t.Column)
	if !ok {
		return f, nil
	}
	if c, ok := col.(*tm.StringColumn); ok {
		for i := 0; i < c.Len(); i++ {
			if c.IsNull(i) {
				continue
			}
			v, _ := c.Get(i)
			nv := t.re.ReplaceAllString(v, t.Replace)
			if nv != v {
				c.Set(i, nv)
				t.Changed++
			}
		}
	}
	return f, nil
}
