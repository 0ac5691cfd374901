package csvio

import (
	"path/filepath"
	"testing"
)

func BenchmarkReadPrevalence(b *testing.B) {
	p := filepath.FromSlash("../../../examples/data/prevalence_nulls.csv")
	for n := 0; n < b.N; n++ {
		r, closer, err := Open(p, ReaderOptions{HasHeader: true})
		if err != nil {
			b.Fatal(err)
		}
		schema, _, err := r.InferSchema()
		if err != nil {
			b.Fatal(err)
		}
		fr, err := r.ReadAll(schema)
		if err != nil {
			b.Fatal(err)
		}
		if fr.Rows() == 0 {
			b.Fatal("no rows")
		}
		_ = closer.Close()
	}
}
