package encode

import "testing"

func TestLabelEncoderRoundTrip(t *testing.T) {
	e := NewLabelEncoder()
	codes := e.FitTransform([]string{"TDAH", "TSA", "Autre", "TDAH"})
	if e.Len() != 3 {
		t.Fatalf("expected 3 classes, got %d", e.Len())
	}
	// classes are sorted: Autre=0, TDAH=1, TSA=2
	want := []int{1, 2, 0, 1}
	for i, c := range codes {
		if c != want[i] {
			t.Fatalf("code[%d] = %d, want %d", i, c, want[i])
		}
	}
	for _, cls := range e.Classes() {
		code, ok := e.Transform(cls)
		if !ok {
			t.Fatalf("fitted class %q not transformable", cls)
		}
		back, ok := e.Inverse(code)
		if !ok || back != cls {
			t.Fatalf("round trip failed for %q: got %q", cls, back)
		}
	}
}

func TestLabelEncoderUnknowns(t *testing.T) {
	e := NewLabelEncoder()
	e.Fit([]string{"a", "b"})
	if _, ok := e.Transform("z"); ok {
		t.Fatal("unseen value should not transform")
	}
	if _, ok := e.Inverse(5); ok {
		t.Fatal("out of range code should not invert")
	}
	if _, ok := e.Inverse(-1); ok {
		t.Fatal("negative code should not invert")
	}
}

func TestLabelEncoderRefit(t *testing.T) {
	e := NewLabelEncoder()
	e.Fit([]string{"x", "y", "z"})
	e.Fit([]string{"only"})
	if e.Len() != 1 {
		t.Fatalf("refit should replace coding, got %d classes", e.Len())
	}
	if _, ok := e.Transform("x"); ok {
		t.Fatal("stale class survived refit")
	}
}
