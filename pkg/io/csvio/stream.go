package csvio

import (
	"encoding/csv"
	"io"

	iox "github.com/santedata/tablemend/pkg/io/ioutils"
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// StreamReader reads CSV into Frame chunks of up to ChunkSize rows.
type StreamReader struct {
	r         *Reader
	schema    tm.Schema
	chunkSize int
}

// NewStreamReader opens the file, infers schema (respecting options), and returns a StreamReader.
func NewStreamReader(path string, opt ReaderOptions, chunkSize int) (*StreamReader, io.Closer, error) {
	rr, closer, err := Open(path, opt)
	if err != nil {
		return nil, nil, err
	}
	schema, _, err := rr.InferSchema()
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return &StreamReader{r: rr, schema: schema, chunkSize: chunkSize}, closer, nil
}

// Next returns the next chunk frame or io.EOF when complete.
func (s *StreamReader) Next() (*tm.Frame, error) {
	if s.chunkSize <= 0 {
		s.chunkSize = 1024
	}
	f := tm.NewFrame(s.schema)
	// drain rows buffered during schema inference first
	for len(s.r.buf) > 0 && f.Rows() < s.chunkSize {
		rec := s.r.buf[0]
		s.r.buf = s.r.buf[1:]
		if err := s.r.appendRecord(f, s.schema, rec); err != nil {
			return nil, err
		}
	}
	for f.Rows() < s.chunkSize {
		rec, err := s.r.r.Read()
		if err == io.EOF {
			if f.Rows() == 0 {
				return nil, io.EOF
			}
			return f, nil
		}
		if err != nil {
			return nil, err
		}
		if err := s.r.appendRecord(f, s.schema, rec); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (s *StreamReader) Schema() tm.Schema { return s.schema }

// Warnings reports short/long record counts seen so far.
func (s *StreamReader) Warnings() string { return s.r.Warnings() }

// StreamWriter appends frames to a CSV file with a header (written once).
type StreamWriter struct {
	w           *csv.Writer
	out         io.WriteCloser
	wroteHeader bool
	schema      tm.Schema
}

func NewStreamWriter(path string, schema tm.Schema, opt WriterOptions) (*StreamWriter, error) {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(out)
	if opt.Delimiter != 0 {
		w.Comma = opt.Delimiter
	}
	return &StreamWriter{w: w, out: out, schema: schema}, nil
}

func (s *StreamWriter) Write(fr *tm.Frame) error {
	if !s.wroteHeader {
		hdr := make([]string, len(s.schema.Columns))
		for i, cs := range s.schema.Columns {
			hdr[i] = cs.Name
		}
		if err := s.w.Write(hdr); err != nil {
			return err
		}
		s.wroteHeader = true
	}
	if err := writeRows(s.w, fr, s.schema); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *StreamWriter) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.out.Close()
		return err
	}
	return s.out.Close()
}
