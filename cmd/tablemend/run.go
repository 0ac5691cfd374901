package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/santedata/tablemend/pkg/audit"
	"github.com/santedata/tablemend/pkg/config"
	"github.com/santedata/tablemend/pkg/io/csvio"
	"github.com/santedata/tablemend/pkg/io/jsonlio"
	"github.com/santedata/tablemend/pkg/io/parquetio"
	"github.com/santedata/tablemend/pkg/io/xlsxio"
	"github.com/santedata/tablemend/pkg/missing"
	"github.com/santedata/tablemend/pkg/profile"
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

func delimiterOf(s string) rune {
	if s == "" {
		return ','
	}
	return rune(s[0])
}

// readFrame loads the whole input. The second return carries reader
// warnings about irregular records, empty when there were none.
func readFrame(cfg *config.Config) (*tm.Frame, string, error) {
	switch format := config.FormatFor(cfg.Input.Type, cfg.Input.Path); format {
	case "csv":
		rdr, file, err := csvio.Open(cfg.Input.Path, csvio.ReaderOptions{
			HasHeader:  cfg.Input.HasHeader,
			Delimiter:  delimiterOf(cfg.Input.Delimiter),
			SampleRows: 100,
			NullValues: cfg.Input.NullValues,
			Encoding:   cfg.Input.Encoding,
		})
		if err != nil {
			return nil, "", err
		}
		defer func() { _ = file.Close() }()
		schema, _, err := rdr.InferSchema()
		if err != nil {
			return nil, "", err
		}
		f, err := rdr.ReadAll(schema)
		if err != nil {
			return nil, "", err
		}
		return f, rdr.Warnings(), nil
	case "jsonl":
		jr, jf, err := jsonlio.Open(cfg.Input.Path, jsonlio.ReaderOptions{
			SampleRows: 100,
			NullValues: cfg.Input.NullValues,
		})
		if err != nil {
			return nil, "", err
		}
		defer func() { _ = jf.Close() }()
		schema, err := jr.InferSchema()
		if err != nil {
			return nil, "", err
		}
		f, err := jr.ReadAll(schema)
		return f, "", err
	case "parquet":
		pr, err := parquetio.OpenReader(cfg.Input.Path, 100)
		if err != nil {
			return nil, "", err
		}
		defer func() { _ = pr.Close() }()
		f, err := pr.ReadAll()
		return f, "", err
	case "xlsx":
		f, err := xlsxio.ReadAll(cfg.Input.Path, xlsxio.ReaderOptions{
			Sheet:      cfg.Input.Sheet,
			HasHeader:  cfg.Input.HasHeader,
			SampleRows: 100,
			NullValues: cfg.Input.NullValues,
		})
		return f, "", err
	default:
		return nil, "", fmt.Errorf("unsupported input type %q", format)
	}
}

func writeFrame(cfg *config.Config, f *tm.Frame) error {
	switch format := config.FormatFor(cfg.Output.Type, cfg.Output.Path); format {
	case "csv":
		return csvio.WriteAll(cfg.Output.Path, f, csvio.WriterOptions{Delimiter: delimiterOf(cfg.Output.Delimiter)})
	case "jsonl":
		return jsonlio.WriteAll(cfg.Output.Path, f)
	case "parquet":
		return parquetio.WriteAll(cfg.Output.Path, f)
	case "xlsx":
		return xlsxio.WriteAll(cfg.Output.Path, f, cfg.Output.Sheet)
	default:
		return fmt.Errorf("unsupported output type %q", format)
	}
}

func newCollector(cfg *config.Config, schema tm.Schema) *profile.Collector {
	col := profile.NewCollector(schema, cfg.Profile.TopK)
	col.ZThreshold = cfg.Profile.ZScore
	col.CorrThreshold = cfg.Profile.Correlation
	return col
}

func writeProfileReport(cfg *config.Config, col *profile.Collector) error {
	if cfg.Profile.Path == "" {
		fmt.Print(col.ReportText())
		return nil
	}
	if strings.HasSuffix(strings.ToLower(cfg.Profile.Path), ".json") {
		b, err := json.MarshalIndent(col.ReportJSON(), "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(cfg.Profile.Path, b, 0o644)
	}
	return os.WriteFile(cfg.Profile.Path, []byte(col.ReportText()), 0o644)
}

func runBatch(ctx context.Context, cfg *config.Config, logger *zap.Logger, profileOnly bool) error {
	frame, warns, err := readFrame(cfg)
	if err != nil {
		return err
	}
	if warns != "" {
		logger.Warn("Input had irregular records", zap.String("detail", warns))
	}
	logger.Info("Loaded input",
		zap.String("path", cfg.Input.Path),
		zap.Int("rows", frame.Rows()),
		zap.Int("cols", frame.Cols()))

	// The profile describes the input as it arrived, before any step
	// touches it.
	if cfg.Profile.Enabled {
		col := newCollector(cfg, frame.Schema())
		col.ConsumeFrame(frame)
		col.Finalize()
		if err := writeProfileReport(cfg, col); err != nil {
			return err
		}
		if profileOnly {
			return nil
		}
	}

	frame, err = buildPipeline(cfg.Steps).Run(ctx, frame)
	if err != nil {
		return err
	}

	if cfg.Resolve.Enabled {
		if err := resolve(ctx, cfg, logger, frame); err != nil {
			return err
		}
	}

	if cfg.Output.Path == "" {
		return nil
	}
	return writeFrame(cfg, frame)
}

// resolve runs the missing-value pass over frame in place, prints the
// decision tables, and feeds the configured report and audit outputs.
func resolve(ctx context.Context, cfg *config.Config, logger *zap.Logger, frame *tm.Frame) error {
	before := frame.Clone()

	h := missing.NewHandler()
	h.Policy.MidThreshold = cfg.Resolve.MidThreshold
	h.Policy.DropThreshold = cfg.Resolve.DropThreshold
	if len(cfg.Resolve.GroupColumns) > 0 {
		h.GroupColumns = cfg.Resolve.GroupColumns
	}
	h.ML = missing.MLOptions{Trees: cfg.Resolve.MLTrees, Seed: cfg.Resolve.MLSeed, CVFolds: cfg.Resolve.MLFolds}
	h.Logger = logger

	dataset := cfg.Resolve.Dataset
	if dataset == "" {
		base := filepath.Base(cfg.Input.Path)
		dataset = strings.TrimSuffix(base, filepath.Ext(base))
	}

	res, err := h.Process(ctx, frame, dataset)
	if err != nil {
		return err
	}
	quality := missing.ValidateQuality(before, frame)

	fmt.Println("Missingness:")
	missing.RenderMissingness(os.Stdout, res.Profile)
	fmt.Println("Decisions:")
	missing.RenderEntries(os.Stdout, res.Entries)
	fmt.Println("Strategies:")
	missing.RenderSummary(os.Stdout, missing.Summarize(res.Entries))
	fmt.Println("Quality:")
	missing.RenderQuality(os.Stdout, quality)

	if cfg.Reports.Dir != "" {
		if err := writeReports(cfg.Reports.Dir, res, quality); err != nil {
			return err
		}
	}
	if cfg.Audit.DSN != "" {
		sink, err := audit.Open(cfg.Audit.DSN, logger)
		if err != nil {
			return err
		}
		defer func() { _ = sink.Close() }()
		if err := sink.RecordRun(ctx, res, quality); err != nil {
			return err
		}
	}
	return nil
}

func writeReports(dir string, res *missing.Result, quality []missing.QualityResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := csvio.WriteAll(filepath.Join(dir, "decisions.csv"), missing.EntriesFrame(res.Entries), csvio.WriterOptions{}); err != nil {
		return err
	}
	if err := csvio.WriteAll(filepath.Join(dir, "strategy_summary.csv"), missing.SummaryFrame(missing.Summarize(res.Entries)), csvio.WriterOptions{}); err != nil {
		return err
	}
	return csvio.WriteAll(filepath.Join(dir, "quality.csv"), missing.QualityFrame(quality), csvio.WriterOptions{})
}

// chunkSource is a stream reader that also knows its schema.
type chunkSource interface {
	tm.ChunkSource
	Schema() tm.Schema
}

// profilingSource feeds every chunk to the collector on the way past.
type profilingSource struct {
	src chunkSource
	col *profile.Collector
}

func (p *profilingSource) Next() (*tm.Frame, error) {
	f, err := p.src.Next()
	if err == nil {
		p.col.ConsumeFrame(f)
	}
	return f, err
}

func (p *profilingSource) Schema() tm.Schema { return p.src.Schema() }

func buildSource(cfg *config.Config, chunkSize int) (chunkSource, io.Closer, error) {
	switch format := config.FormatFor(cfg.Input.Type, cfg.Input.Path); format {
	case "csv":
		return csvio.NewStreamReader(cfg.Input.Path, csvio.ReaderOptions{
			HasHeader:  cfg.Input.HasHeader,
			Delimiter:  delimiterOf(cfg.Input.Delimiter),
			SampleRows: 100,
			NullValues: cfg.Input.NullValues,
			Encoding:   cfg.Input.Encoding,
		}, chunkSize)
	case "jsonl":
		return jsonlio.NewStreamReader(cfg.Input.Path, jsonlio.ReaderOptions{
			SampleRows: 100,
			NullValues: cfg.Input.NullValues,
		}, chunkSize)
	case "parquet":
		sr, err := parquetio.NewStreamReader(cfg.Input.Path, chunkSize, 100)
		if err != nil {
			return nil, nil, err
		}
		return sr, sr, nil
	default:
		return nil, nil, fmt.Errorf("unsupported input type %q for streaming", format)
	}
}

func buildSink(cfg *config.Config, schema tm.Schema) (tm.ChunkSink, error) {
	switch format := config.FormatFor(cfg.Output.Type, cfg.Output.Path); format {
	case "csv":
		return csvio.NewStreamWriter(cfg.Output.Path, schema, csvio.WriterOptions{Delimiter: delimiterOf(cfg.Output.Delimiter)})
	case "jsonl":
		return jsonlio.NewStreamWriter(cfg.Output.Path)
	case "parquet":
		return parquetio.NewStreamWriter(cfg.Output.Path, schema)
	default:
		return nil, fmt.Errorf("unsupported output type %q for streaming", format)
	}
}

func runStream(ctx context.Context, cfg *config.Config, logger *zap.Logger, chunkSize int) error {
	if cfg.Resolve.Enabled {
		return errors.New("resolution needs whole columns; run without --chunk-size")
	}
	if cfg.Output.Path == "" {
		return errors.New("streaming needs an output path")
	}
	src, closer, err := buildSource(cfg, chunkSize)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	sink, err := buildSink(cfg, src.Schema())
	if err != nil {
		return err
	}

	var col *profile.Collector
	if cfg.Profile.Enabled {
		col = newCollector(cfg, src.Schema())
		src = &profilingSource{src: src, col: col}
	}

	logger.Info("Streaming",
		zap.String("input", cfg.Input.Path),
		zap.String("output", cfg.Output.Path),
		zap.Int("chunk_size", chunkSize))
	if err := tm.RunStream(ctx, buildPipeline(cfg.Steps), src, sink); err != nil {
		return err
	}
	if col != nil {
		col.Finalize()
		return writeProfileReport(cfg, col)
	}
	return nil
}
