package encode

import "sort"

// LabelEncoder maps string classes to dense integer codes. Classes are
// kept sorted, so fitting the same value set always yields the same
// coding and every code round-trips back to its class.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

func NewLabelEncoder() *LabelEncoder {
	return &LabelEncoder{index: make(map[string]int)}
}

// Fit collects the distinct values and assigns codes in sorted order.
// Refitting replaces the previous coding.
func (e *LabelEncoder) Fit(values []string) {
	seen := make(map[string]struct{}, len(values))
	e.classes = e.classes[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		e.classes = append(e.classes, v)
	}
	sort.Strings(e.classes)
	e.index = make(map[string]int, len(e.classes))
	for i, c := range e.classes {
		e.index[c] = i
	}
}

// Transform returns the code for v, false when v was not seen during Fit.
func (e *LabelEncoder) Transform(v string) (int, bool) {
	code, ok := e.index[v]
	return code, ok
}

// FitTransform fits on values and returns their codes.
func (e *LabelEncoder) FitTransform(values []string) []int {
	e.Fit(values)
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = e.index[v]
	}
	return out
}

// Inverse returns the class for a code, false when out of range.
func (e *LabelEncoder) Inverse(code int) (string, bool) {
	if code < 0 || code >= len(e.classes) {
		return "", false
	}
	return e.classes[code], true
}

// Classes returns the fitted classes in code order.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

func (e *LabelEncoder) Len() int { return len(e.classes) }
