package csvio

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

func TestInferAndReadPrevalence(t *testing.T) {
	p := filepath.FromSlash("../../../examples/data/prevalence_nulls.csv")
	r, closer, err := Open(p, ReaderOptions{HasHeader: true})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = closer.Close() }()
	schema, names, err := r.InferSchema()
	if err != nil {
		t.Fatal(err)
	}
	if len(schema.Columns) != 8 {
		t.Fatalf("expected 8 columns, got %d", len(schema.Columns))
	}
	if names[0] != "region" || names[7] != "source" {
		t.Fatalf("unexpected header: %v", names)
	}
	wantKinds := map[string]tm.Kind{
		"region":          tm.KindString,
		"code_region":     tm.KindInt,
		"age_group":       tm.KindString,
		"annee":           tm.KindInt,
		"taux_prevalence": tm.KindFloat,
		"nb_cas":          tm.KindInt,
	}
	for _, cs := range schema.Columns {
		if want, ok := wantKinds[cs.Name]; ok && cs.Type != want {
			t.Fatalf("column %s: expected kind %d, got %d", cs.Name, want, cs.Type)
		}
	}
	fr, err := r.ReadAll(schema)
	if err != nil {
		t.Fatal(err)
	}
	if fr.Rows() != 40 {
		t.Fatalf("expected 40 rows, got %d", fr.Rows())
	}
	if n := fr.NullCount("taux_prevalence"); n != 6 {
		t.Fatalf("taux_prevalence nulls: expected 6, got %d", n)
	}
	if n := fr.NullCount("nb_cas"); n != 5 {
		t.Fatalf("nb_cas nulls: expected 5, got %d", n)
	}
	if n := fr.NullCount("source"); n != 3 {
		t.Fatalf("source nulls: expected 3, got %d", n)
	}
	if v, ok := fr.CellString(0, "region"); !ok || v != "Île-de-France" {
		t.Fatalf("first region cell: got %q ok=%v", v, ok)
	}
}

func TestCustomNullMarkers(t *testing.T) {
	p := filepath.Join(t.TempDir(), "markers.csv")
	data := "code,label\n1,a\n2,?\n3,NA\n"
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	r, closer, err := Open(p, ReaderOptions{HasHeader: true, NullValues: []string{"?"}})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = closer.Close() }()
	schema, _, err := r.InferSchema()
	if err != nil {
		t.Fatal(err)
	}
	fr, err := r.ReadAll(schema)
	if err != nil {
		t.Fatal(err)
	}
	if n := fr.NullCount("label"); n != 1 {
		t.Fatalf("expected 1 null with custom markers, got %d", n)
	}
	if v, ok := fr.CellString(2, "label"); !ok || v != "NA" {
		t.Fatalf("NA should survive custom markers: got %q ok=%v", v, ok)
	}
}

func TestLatin1Encoding(t *testing.T) {
	p := filepath.Join(t.TempDir(), "latin1.csv")
	data := append([]byte("ville,notes\nOrl"), 0xE9)
	data = append(data, []byte("ans,2\n")...)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	r, closer, err := Open(p, ReaderOptions{HasHeader: true, Encoding: "latin1"})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = closer.Close() }()
	schema, _, err := r.InferSchema()
	if err != nil {
		t.Fatal(err)
	}
	fr, err := r.ReadAll(schema)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := fr.CellString(0, "ville"); !ok || v != "Orléans" {
		t.Fatalf("latin1 decode: got %q ok=%v", v, ok)
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	_, err := NewReaderFrom(strings.NewReader("a\n1\n"), ReaderOptions{Encoding: "ebcdic"})
	if err == nil {
		t.Fatal("expected error for unsupported encoding")
	}
}

func TestSniffSemicolon(t *testing.T) {
	p := filepath.Join(t.TempDir(), "semi.csv")
	if err := os.WriteFile(p, []byte("code;label\n1;x\n2;y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	r, closer, err := Open(p, ReaderOptions{HasHeader: true})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = closer.Close() }()
	schema, _, err := r.InferSchema()
	if err != nil {
		t.Fatal(err)
	}
	if len(schema.Columns) != 2 {
		t.Fatalf("expected 2 columns after sniff, got %d", len(schema.Columns))
	}
	if schema.Columns[0].Type != tm.KindInt {
		t.Fatalf("expected int first column, got %d", schema.Columns[0].Type)
	}
}

func TestShortRecords(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "ragged.csv")
	if err := os.WriteFile(p, []byte("a,b\n1,2\n3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, closer, err := Open(p, ReaderOptions{HasHeader: true})
	if err != nil {
		t.Fatal(err)
	}
	schema, _, err := r.InferSchema()
	if err != nil {
		t.Fatal(err)
	}
	fr, err := r.ReadAll(schema)
	if err != nil {
		t.Fatal(err)
	}
	_ = closer.Close()
	if fr.Rows() != 2 {
		t.Fatalf("expected 2 rows, got %d", fr.Rows())
	}
	if n := fr.NullCount("b"); n != 1 {
		t.Fatalf("short row should leave b null: got %d nulls", n)
	}
	if w := r.Warnings(); !strings.Contains(w, "short_records=1") {
		t.Fatalf("expected short record warning, got %q", w)
	}

	r2, closer2, err := Open(p, ReaderOptions{HasHeader: true, Strict: true})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = closer2.Close() }()
	schema2, _, err := r2.InferSchema()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r2.ReadAll(schema2); err == nil {
		t.Fatal("expected strict mode to reject short record")
	}
}

func TestRoundTrip(t *testing.T) {
	schema := tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "taux", Type: tm.KindFloat, Nullable: true},
		{Name: "nb", Type: tm.KindInt, Nullable: true},
		{Name: "region", Type: tm.KindString, Nullable: true},
	}}
	f := tm.NewFrame(schema)
	f.AppendNullRow()
	_ = f.SetCell(0, "taux", 1.5)
	_ = f.SetCell(0, "nb", int64(12))
	_ = f.SetCell(0, "region", "Bretagne")
	f.AppendNullRow()
	_ = f.SetCell(1, "nb", int64(7))
	f.AppendNullRow()
	_ = f.SetCell(2, "taux", 2.25)
	_ = f.SetCell(2, "region", "Occitanie")

	for _, name := range []string{"round.csv", "round.csv.gz"} {
		p := filepath.Join(t.TempDir(), name)
		if err := WriteAll(p, f, WriterOptions{}); err != nil {
			t.Fatal(err)
		}
		r, closer, err := Open(p, ReaderOptions{HasHeader: true})
		if err != nil {
			t.Fatal(err)
		}
		got, err := func() (*tm.Frame, error) {
			s, _, err := r.InferSchema()
			if err != nil {
				return nil, err
			}
			return r.ReadAll(s)
		}()
		_ = closer.Close()
		if err != nil {
			t.Fatal(err)
		}
		if got.Rows() != 3 {
			t.Fatalf("%s: expected 3 rows, got %d", name, got.Rows())
		}
		if n := got.NullCount("taux"); n != 1 {
			t.Fatalf("%s: taux nulls: expected 1, got %d", name, n)
		}
		if n := got.NullCount("region"); n != 1 {
			t.Fatalf("%s: region nulls: expected 1, got %d", name, n)
		}
		if v, ok := got.CellString(2, "taux"); !ok || v != "2.25" {
			t.Fatalf("%s: taux cell: got %q ok=%v", name, v, ok)
		}
		if v, ok := got.CellString(0, "region"); !ok || v != "Bretagne" {
			t.Fatalf("%s: region cell: got %q ok=%v", name, v, ok)
		}
	}
}

func TestStreamChunks(t *testing.T) {
	p := filepath.FromSlash("../../../examples/data/prevalence_nulls.csv")
	sr, closer, err := NewStreamReader(p, ReaderOptions{HasHeader: true}, 16)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = closer.Close() }()
	if len(sr.Schema().Columns) != 8 {
		t.Fatalf("expected 8 columns, got %d", len(sr.Schema().Columns))
	}
	var sizes []int
	for {
		fr, err := sr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		sizes = append(sizes, fr.Rows())
	}
	if len(sizes) != 3 || sizes[0] != 16 || sizes[1] != 16 || sizes[2] != 8 {
		t.Fatalf("unexpected chunk sizes: %v", sizes)
	}
}

func TestStreamWriterRoundTrip(t *testing.T) {
	schema := tm.Schema{Columns: []tm.ColumnSchema{
		{Name: "annee", Type: tm.KindInt, Nullable: true},
		{Name: "taux", Type: tm.KindFloat, Nullable: true},
	}}
	chunk := tm.NewFrame(schema)
	chunk.AppendNullRow()
	_ = chunk.SetCell(0, "annee", int64(2020))
	_ = chunk.SetCell(0, "taux", 2.5)

	p := filepath.Join(t.TempDir(), "stream.csv")
	sw, err := NewStreamWriter(p, schema, WriterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := sw.Write(chunk); err != nil {
		t.Fatal(err)
	}
	if err := sw.Write(chunk); err != nil {
		t.Fatal(err)
	}
	if err := sw.Close(); err != nil {
		t.Fatal(err)
	}

	r, closer, err := Open(p, ReaderOptions{HasHeader: true})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = closer.Close() }()
	s, _, err := r.InferSchema()
	if err != nil {
		t.Fatal(err)
	}
	fr, err := r.ReadAll(s)
	if err != nil {
		t.Fatal(err)
	}
	if fr.Rows() != 2 {
		t.Fatalf("expected 2 rows with a single header, got %d", fr.Rows())
	}
}
