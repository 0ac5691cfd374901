package parquetio

import (
	"fmt"
	"io"
	"os"

	parquet "github.com/segmentio/parquet-go"

	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// StreamReader reads Parquet rows in chunks as Frames.
type StreamReader struct {
	file      *os.File
	reader    *parquet.GenericReader[map[string]any]
	schema    tm.Schema
	chunkSize int
	buf       []map[string]any
}

func NewStreamReader(path string, chunkSize int, sampleRows int) (*StreamReader, error) {
	rd, err := OpenReader(path, sampleRows)
	if err != nil {
		return nil, err
	}
	schema := rd.Schema()
	// keep the file, restart the reader for streaming
	f := rd.file
	if err := rd.reader.Close(); err != nil {
		_ = f.Close()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		_ = f.Close()
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = 8192
	}
	return &StreamReader{
		file:      f,
		reader:    parquet.NewGenericReader[map[string]any](f),
		schema:    schema,
		chunkSize: chunkSize,
		buf:       make([]map[string]any, chunkSize),
	}, nil
}

func (s *StreamReader) Close() error {
	_ = s.reader.Close()
	return s.file.Close()
}

func (s *StreamReader) Schema() tm.Schema { return s.schema }

func (s *StreamReader) Next() (*tm.Frame, error) {
	for i := range s.buf {
		s.buf[i] = map[string]any{}
	}
	n, err := s.reader.Read(s.buf)
	if n == 0 && err != nil {
		return nil, err
	}
	f := tm.NewFrame(s.schema)
	for i := 0; i < n; i++ {
		f.AppendNullRow()
		setRow(f, f.Rows()-1, s.buf[i])
	}
	return f, nil
}

// StreamWriter writes Frames to a Parquet file incrementally. The
// column layout is fixed by the schema given at open time.
type StreamWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[map[string]any]
	schema tm.Schema
}

func NewStreamWriter(path string, schema tm.Schema) (*StreamWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := parquet.NewGenericWriter[map[string]any](f, parquetSchema(schema))
	return &StreamWriter{file: f, writer: w, schema: schema}, nil
}

func parquetSchema(s tm.Schema) *parquet.Schema {
	group := parquet.Group{}
	for _, cs := range s.Columns {
		var node parquet.Node
		switch cs.Type {
		case tm.KindFloat:
			node = parquet.Leaf(parquet.DoubleType)
		case tm.KindInt:
			node = parquet.Int(64)
		case tm.KindBool:
			node = parquet.Leaf(parquet.BooleanType)
		default:
			node = parquet.String()
		}
		group[cs.Name] = parquet.Optional(node)
	}
	return parquet.NewSchema("frame", group)
}

func (s *StreamWriter) Write(fr *tm.Frame) error {
	for r := 0; r < fr.Rows(); r++ {
		if _, err := s.writer.Write([]map[string]any{rowMap(fr, r)}); err != nil {
			return fmt.Errorf("parquet stream write: %w", err)
		}
	}
	return nil
}

func (s *StreamWriter) Close() error {
	if err := s.writer.Close(); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}
