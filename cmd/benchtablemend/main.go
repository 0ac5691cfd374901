package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/santedata/tablemend/pkg/missing"
	tm "github.com/santedata/tablemend/pkg/tablemend"
	imp "github.com/santedata/tablemend/pkg/transform/impute"
	std "github.com/santedata/tablemend/pkg/transform/standardize"
)

var (
	regionCodes = []string{"11", "24", "27", "28", "32", "44", "52", "53", "75", "76", "84", "93"}
	ageGroups   = []string{"0-14", "15-29", "30-44", "45-59", "60-74", "75+"}
	sexes       = []string{"F", "M"}
)

// genSource fabricates observatory-shaped chunks: stratification
// columns plus numeric measures, with holes at the configured rate.
type genSource struct {
	schema tm.Schema
	remain int
	chunk  int
	missp  float64
	rnd    *rand.Rand
}

func (g *genSource) Next() (*tm.Frame, error) {
	if g.remain <= 0 {
		return nil, io.EOF
	}
	n := g.chunk
	if n > g.remain {
		n = g.remain
	}
	g.remain -= n
	f := tm.NewFrame(g.schema)
	for i := 0; i < n; i++ {
		f.AppendNullRow()
		for _, cs := range g.schema.Columns {
			if g.rnd.Float64() < g.missp {
				continue
			}
			switch {
			case cs.Name == "region_code":
				_ = f.SetCell(i, cs.Name, regionCodes[g.rnd.Intn(len(regionCodes))])
			case cs.Name == "age_group":
				_ = f.SetCell(i, cs.Name, ageGroups[g.rnd.Intn(len(ageGroups))])
			case cs.Name == "sexe":
				_ = f.SetCell(i, cs.Name, sexes[g.rnd.Intn(len(sexes))])
			case cs.Type == tm.KindFloat:
				_ = f.SetCell(i, cs.Name, g.rnd.Float64()*100)
			case cs.Type == tm.KindInt:
				_ = f.SetCell(i, cs.Name, int64(g.rnd.Intn(1000)))
			case cs.Type == tm.KindString:
				_ = f.SetCell(i, cs.Name, "Alpha ")
			}
		}
	}
	return f, nil
}

type blackholeSink struct{ rows int }

func (b *blackholeSink) Write(f *tm.Frame) error { b.rows += f.Rows(); return nil }
func (b *blackholeSink) Close() error            { return nil }

func buildSchema(fcols, icols int) tm.Schema {
	cols := []tm.ColumnSchema{
		{Name: "region_code", Type: tm.KindString, Nullable: true},
		{Name: "age_group", Type: tm.KindString, Nullable: true},
		{Name: "sexe", Type: tm.KindString, Nullable: true},
	}
	for i := 0; i < fcols; i++ {
		cols = append(cols, tm.ColumnSchema{Name: fmt.Sprintf("taux%d", i), Type: tm.KindFloat, Nullable: true})
	}
	for i := 0; i < icols; i++ {
		cols = append(cols, tm.ColumnSchema{Name: fmt.Sprintf("nb%d", i), Type: tm.KindInt, Nullable: true})
	}
	return tm.Schema{Columns: cols}
}

func main() {
	var (
		rows        = flag.Int("rows", 1_000_000, "total rows to generate")
		chunk       = flag.Int("chunk", 100_000, "rows per chunk")
		fcols       = flag.Int("float-cols", 4, "number of float measure columns")
		icols       = flag.Int("int-cols", 2, "number of int measure columns")
		missp       = flag.Float64("missing", 0.05, "probability of missing values in each cell")
		resolveMode = flag.Bool("resolve", false, "benchmark the missing-value pass instead of the stream pipeline")
		jsonOut     = flag.Bool("json", false, "emit JSON summary")
		seed        = flag.Int64("seed", 42, "random seed")
	)
	flag.Parse()

	schema := buildSchema(*fcols, *icols)
	src := &genSource{schema: schema, remain: *rows, chunk: *chunk, missp: *missp, rnd: rand.New(rand.NewSource(*seed))}

	runtime.GC()
	time.Sleep(100 * time.Millisecond)

	var msBefore, msAfter runtime.MemStats
	summary := map[string]any{
		"rows":         *rows,
		"chunk":        *chunk,
		"missing_prob": *missp,
		"cols":         map[string]int{"float": *fcols, "int": *icols, "string": 3},
	}

	var elapsed time.Duration
	if *resolveMode {
		// Materialize one frame, then time the resolution pass alone.
		src.chunk = *rows
		frame, err := src.Next()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		h := missing.NewHandler()
		h.ML = missing.MLOptions{Seed: *seed}

		runtime.ReadMemStats(&msBefore)
		start := time.Now()
		res, err := h.Process(context.Background(), frame, "bench")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		elapsed = time.Since(start)
		runtime.ReadMemStats(&msAfter)

		summary["mode"] = "resolve"
		summary["entries"] = len(res.Entries)
		summary["filled_columns"] = len(res.Filled)
		summary["dropped_columns"] = len(res.Dropped)
	} else {
		p := tm.NewPipeline().
			Add(&imp.Mean{Column: "taux0"}).
			Add(&imp.Median{Column: "nb0"}).
			Add(&imp.Mode{Column: "region_code"}).
			Add(&std.Trim{Column: "age_group"})
		sink := &blackholeSink{}

		runtime.ReadMemStats(&msBefore)
		start := time.Now()
		if err := tm.RunStream(context.Background(), p, src, sink); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		elapsed = time.Since(start)
		runtime.ReadMemStats(&msAfter)

		summary["mode"] = "stream"
	}

	rowsPerSec := float64(*rows) / elapsed.Seconds()
	summary["elapsed_ms"] = elapsed.Milliseconds()
	summary["rows_per_sec"] = rowsPerSec
	summary["mem_alloc_bytes"] = msAfter.Alloc
	summary["mem_total_alloc_bytes"] = msAfter.TotalAlloc - msBefore.TotalAlloc
	summary["gc_num"] = msAfter.NumGC - msBefore.NumGC

	if *jsonOut {
		b, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(b))
		return
	}
	fmt.Printf("Mode: %s\n", summary["mode"])
	fmt.Printf("Rows: %d\n", *rows)
	fmt.Printf("Elapsed: %s\n", elapsed)
	fmt.Printf("Throughput: %.0f rows/s\n", rowsPerSec)
	fmt.Printf("Current Alloc: %d MB\n", msAfter.Alloc/1024/1024)
	fmt.Printf("Total Alloc (delta): %d MB\n", (msAfter.TotalAlloc-msBefore.TotalAlloc)/1024/1024)
	fmt.Printf("GC cycles (delta): %d\n", msAfter.NumGC-msBefore.NumGC)
}
