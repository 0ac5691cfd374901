package standardize

import (
	"context"
	"strings"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// DefaultRegionCodes maps French region labels, in their common
// spellings and abbreviations, to INSEE region codes. Pre-2016 region
// names map to the merged region that absorbed them.
var DefaultRegionCodes = map[string]string{
	"île-de-france":              "11",
	"ile-de-france":              "11",
	"idf":                        "11",
	"provence-alpes-côte d'azur": "93",
	"paca":                       "93",
	"auvergne-rhône-alpes":       "84",
	"auvergne-rhone-alpes":       "84",
	"hauts-de-france":            "32",
	"nord-pas-de-calais":         "32",
	"nouvelle-aquitaine":         "75",
	"aquitaine":                  "75",
	"occitanie":                  "76",
	"languedoc-roussillon":       "76",
	"grand est":                  "44",
	"alsace":                     "44",
	"lorraine":                   "44",
	"pays de la loire":           "52",
	"loire":                      "52",
	"bretagne":                   "53",
	"normandie":                  "28",
	"centre-val de loire":        "24",
	"centre":                     "24",
	"bourgogne-franche-comté":    "27",
	"bourgogne":                  "27",
	"corse":                      "94",
	"corsica":                    "94",
}

// RegionCode normalizes a column of region labels to INSEE codes.
// Matching is case-insensitive and ignores surrounding whitespace;
// values with no match are left exactly as they were.
type RegionCode struct {
	Column string
	Map    map[string]string // nil means DefaultRegionCodes

	Mapped int
}

func (t *RegionCode) Name() string { return "region_code" }

func (t *RegionCode) Apply(ctx context.Context, f *tm.Frame) (*tm.Frame, error) {
	t.Mapped = 0
	mapping := t.Map
	if mapping == nil {
		mapping = DefaultRegionCodes
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
			key := strings.ToLower(strings.TrimSpace(v))
			if code, ok := mapping[key]; ok {
				if code != v {
					c.Set(i, code)
					t.Mapped++
				}
			}
		}
	}
	return f, nil
}
