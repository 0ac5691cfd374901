package missing

import (
	"sort"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// ColumnMissingness describes one column with at least one null.
type ColumnMissingness struct {
	Column   string
	Kind     tm.Kind
	Class    tm.Class
	Missing  int
	Total    int
	Fraction float64
}

// Profile is the missingness picture of a frame at one point in time.
// It also keeps the row-level null masks taken before any fill runs, so
// indicator columns can be built after the values are gone.
type Profile struct {
	Dataset string
	Rows    int

	// Columns is ranked by fraction, worst first. Fully observed
	// columns are not listed.
	Columns []ColumnMissingness

	masks map[string][]bool
}

// Analyze walks every column of f and records null counts, fractions
// and per-row masks. The frame is not modified.
func Analyze(f *tm.Frame, dataset string) *Profile {
	rows := f.Rows()
	p := &Profile{Dataset: dataset, Rows: rows, masks: make(map[string][]bool)}
	for _, cs := range f.Schema().Columns {
		col, ok := f.ColumnByName(cs.Name)
		if !ok {
			continue
		}
		mask := make([]bool, rows)
		missing := 0
		for i := 0; i < rows; i++ {
			if col.IsNull(i) {
				mask[i] = true
				missing++
			}
		}
		if missing == 0 {
			continue
		}
		p.masks[cs.Name] = mask
		frac := 0.0
		if rows > 0 {
			frac = float64(missing) / float64(rows)
		}
		p.Columns = append(p.Columns, ColumnMissingness{
			Column:   cs.Name,
			Kind:     cs.Type,
			Class:    cs.Type.Class(),
			Missing:  missing,
			Total:    rows,
			Fraction: frac,
		})
	}
	sort.SliceStable(p.Columns, func(i, j int) bool {
		return p.Columns[i].Fraction > p.Columns[j].Fraction
	})
	return p
}

// ByColumn looks up the missingness record for one column.
func (p *Profile) ByColumn(name string) (ColumnMissingness, bool) {
	for _, c := range p.Columns {
		if c.Column == name {
			return c, true
		}
	}
	return ColumnMissingness{}, false
}

// Mask returns the pre-fill null mask for a column, or nil if the
// column had no nulls.
func (p *Profile) Mask(name string) []bool {
	return p.masks[name]
}

// TotalMissing is the number of null cells across the frame.
func (p *Profile) TotalMissing() int {
	n := 0
	for _, c := range p.Columns {
		n += c.Missing
	}
	return n
}
