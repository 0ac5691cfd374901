// Package golearn converts between tablemend's Frame and
// github.com/sjwhitworth/golearn/base DenseInstances.
package golearn

import (
	"fmt"

	"github.com/sjwhitworth/golearn/base"

	"github.com/santedata/tablemend/pkg/io/csvio"
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// ToDenseInstances converts a Frame into golearn DenseInstances. The
// named class column becomes the class attribute; float and int columns
// become float attributes, everything else categorical. Null cells are
// left at the attribute zero value, so callers that care fill first.
func ToDenseInstances(f *tm.Frame, class string) (*base.DenseInstances, error) {
	if _, ok := f.ColumnByName(class); !ok {
		return nil, fmt.Errorf("class column not in frame: %s", class)
	}
	cols := f.Schema().Columns
	attrs := make([]base.Attribute, len(cols))
	classIdx := -1
	for i, cs := range cols {
		switch cs.Type {
		case tm.KindFloat, tm.KindInt:
			attrs[i] = base.NewFloatAttribute(cs.Name)
		default:
			ca := new(base.CategoricalAttribute)
			ca.SetName(cs.Name)
			attrs[i] = ca
		}
		if cs.Name == class {
			classIdx = i
		}
	}
	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, len(attrs))
	for i, a := range attrs {
		specs[i] = inst.AddAttribute(a)
	}
	if err := inst.Extend(f.Rows()); err != nil {
		return nil, err
	}

	for r := 0; r < f.Rows(); r++ {
		for c, cs := range cols {
			col, _ := f.ColumnByName(cs.Name)
			switch cs.Type {
			case tm.KindFloat:
				if v, ok := col.(*tm.FloatColumn).Get(r); ok {
					inst.Set(specs[c], r, base.PackFloatToBytes(v))
				}
			case tm.KindInt:
				if v, ok := col.(*tm.IntColumn).Get(r); ok {
					inst.Set(specs[c], r, base.PackFloatToBytes(float64(v)))
				}
			default:
				if v, ok := f.CellString(r, cs.Name); ok {
					inst.Set(specs[c], r, attrs[c].GetSysValFromString(v))
				}
			}
		}
	}
	if err := inst.AddClassAttribute(attrs[classIdx]); err != nil {
		return nil, err
	}
	return inst, nil
}

// LoadCSV reads a CSV file straight into golearn DenseInstances, with
// the same sniffing and null handling as the csvio reader. An empty
// class name picks the last column.
func LoadCSV(path string, opt csvio.ReaderOptions, class string) (*base.DenseInstances, error) {
	r, closer, err := csvio.Open(path, opt)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()
	schema, _, err := r.InferSchema()
	if err != nil {
		return nil, err
	}
	fr, err := r.ReadAll(schema)
	if err != nil {
		return nil, err
	}
	if class == "" {
		if len(schema.Columns) == 0 {
			return nil, fmt.Errorf("csv has no columns")
		}
		class = schema.Columns[len(schema.Columns)-1].Name
	}
	return ToDenseInstances(fr, class)
}

// FromDenseInstances converts golearn DenseInstances into a Frame.
// Float attributes come back as float columns, everything else as
// strings; time semantics and nulls do not survive the trip.
func FromDenseInstances(inst *base.DenseInstances) (*tm.Frame, error) {
	attrs := inst.AllAttributes()
	schema := tm.Schema{Columns: make([]tm.ColumnSchema, len(attrs))}
	specs := make([]base.AttributeSpec, len(attrs))
	for i, a := range attrs {
		k := tm.KindString
		if a.GetType() == base.Float64Type {
			k = tm.KindFloat
		}
		schema.Columns[i] = tm.ColumnSchema{Name: a.GetName(), Type: k, Nullable: true}
		spec, err := inst.GetAttribute(a)
		if err != nil {
			return nil, err
		}
		specs[i] = spec
	}
	f := tm.NewFrame(schema)
	_, nrows := inst.Size()
	for r := 0; r < nrows; r++ {
		f.AppendNullRow()
		for c, cs := range schema.Columns {
			switch cs.Type {
			case tm.KindFloat:
				v := base.UnpackBytesToFloat(inst.Get(specs[c], r))
				_ = f.SetCell(r, cs.Name, v)
			default:
				v := specs[c].GetAttribute().GetStringFromSysVal(inst.Get(specs[c], r))
				_ = f.SetCell(r, cs.Name, v)
			}
		}
	}
	return f, nil
}
