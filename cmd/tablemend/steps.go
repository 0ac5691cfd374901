package main

import (
	"fmt"
	"os"

	"github.com/santedata/tablemend/pkg/config"
	tm "github.com/santedata/tablemend/pkg/tablemend"
	imp "github.com/santedata/tablemend/pkg/transform/impute"
	outl "github.com/santedata/tablemend/pkg/transform/outliers"
	std "github.com/santedata/tablemend/pkg/transform/standardize"
	val "github.com/santedata/tablemend/pkg/transform/validate"
)

// buildPipeline turns config steps into a pipeline. Each step is keyed
// by its kind; unknown kinds are warned about and skipped.
func buildPipeline(steps []config.Step) *tm.Pipeline {
	p := tm.NewPipeline()
	for _, st := range steps {
		k := st.Kind()
		switch k {
		case "impute_constant":
			var s struct {
				Column string `json:"column"`
				Value  any    `json:"value"`
			}
			_ = st.Params(&s)
			p.Add(&imp.Constant{Column: s.Column, Value: s.Value})
		case "impute_mean":
			var s struct {
				Column string `json:"column"`
			}
			_ = st.Params(&s)
			p.Add(&imp.Mean{Column: s.Column})
		case "impute_median":
			var s struct {
				Column string `json:"column"`
			}
			_ = st.Params(&s)
			p.Add(&imp.Median{Column: s.Column})
		case "impute_mode":
			var s struct {
				Column string `json:"column"`
			}
			_ = st.Params(&s)
			p.Add(&imp.Mode{Column: s.Column})
		case "impute_missing_category":
			var s struct {
				Column string `json:"column"`
				Value  string `json:"value"`
			}
			_ = st.Params(&s)
			p.Add(&imp.MissingCategory{Column: s.Column, Value: s.Value})
		case "impute_group":
			var s struct {
				Column       string   `json:"column"`
				GroupColumns []string `json:"group_columns"`
			}
			_ = st.Params(&s)
			p.Add(&imp.Group{Column: s.Column, GroupColumns: s.GroupColumns})
		case "impute_forest":
			var s struct {
				Column  string `json:"column"`
				Trees   int    `json:"trees"`
				Seed    int64  `json:"seed"`
				CVFolds int    `json:"cv_folds"`
			}
			_ = st.Params(&s)
			p.Add(&imp.Forest{Column: s.Column, Trees: s.Trees, Seed: s.Seed, CVFolds: s.CVFolds})
		case "drop_column":
			var s struct {
				Column string `json:"column"`
			}
			_ = st.Params(&s)
			p.Add(&imp.Drop{Column: s.Column})
		case "trim":
			var s struct {
				Column string `json:"column"`
			}
			_ = st.Params(&s)
			p.Add(&std.Trim{Column: s.Column})
		case "lower":
			var s struct {
				Column string `json:"column"`
			}
			_ = st.Params(&s)
			p.Add(&std.Lower{Column: s.Column})
		case "regex_replace":
			var s struct {
				Column  string `json:"column"`
				Pattern string `json:"pattern"`
				Replace string `json:"replace"`
			}
			_ = st.Params(&s)
			p.Add(&std.RegexReplace{Column: s.Column, Pattern: s.Pattern, Replace: s.Replace})
		case "map_values":
			var s struct {
				Column string            `json:"column"`
				Map    map[string]string `json:"map"`
			}
			_ = st.Params(&s)
			p.Add(&std.MapValues{Column: s.Column, Map: s.Map})
		case "region_code":
			var s struct {
				Column string `json:"column"`
			}
			_ = st.Params(&s)
			p.Add(&std.RegionCode{Column: s.Column})
		case "parse_date":
			var s struct {
				Column  string   `json:"column"`
				Layouts []string `json:"layouts"`
			}
			_ = st.Params(&s)
			p.Add(&std.ParseDate{Column: s.Column, Layouts: s.Layouts})
		case "unit_scale":
			var s struct {
				Column string  `json:"column"`
				Factor float64 `json:"factor"`
				Unit   string  `json:"unit"`
			}
			_ = st.Params(&s)
			p.Add(&std.UnitScale{Column: s.Column, Factor: s.Factor, Unit: s.Unit})
		case "validate_in":
			var s struct {
				Column string   `json:"column"`
				Values []string `json:"values"`
			}
			_ = st.Params(&s)
			p.Add(val.NewInSet(s.Column, s.Values))
		case "validate_range":
			var s struct {
				Column string   `json:"column"`
				Min    *float64 `json:"min"`
				Max    *float64 `json:"max"`
			}
			_ = st.Params(&s)
			p.Add(&val.Range{Column: s.Column, Min: s.Min, Max: s.Max})
		case "cap_range":
			var s struct {
				Column string   `json:"column"`
				Min    *float64 `json:"min"`
				Max    *float64 `json:"max"`
			}
			_ = st.Params(&s)
			p.Add(&outl.Cap{Column: s.Column, Min: s.Min, Max: s.Max})
		case "zscore":
			var s struct {
				Column    string  `json:"column"`
				Threshold float64 `json:"threshold"`
				Cap       bool    `json:"cap"`
			}
			_ = st.Params(&s)
			p.Add(&outl.ZScore{Column: s.Column, Threshold: s.Threshold, Cap: s.Cap})
		default:
			fmt.Fprintf(os.Stderr, "warning: unknown step %q ignored\n", k)
		}
	}
	return p
}
