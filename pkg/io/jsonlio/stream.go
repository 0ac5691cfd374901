package jsonlio

import (
	"bufio"
	"encoding/json"
	"io"

	iox "github.com/santedata/tablemend/pkg/io/ioutils"
	tm "github.com/santedata/tablemend/pkg/tablemend"
)

// StreamReader reads JSON Lines into Frame chunks of up to chunkSize
// rows. Rows sampled during inference are replayed first, so no seek is
// needed and compressed input streams work.
type StreamReader struct {
	r         *Reader
	schema    tm.Schema
	chunkSize int
}

func NewStreamReader(path string, opt ReaderOptions, chunkSize int) (*StreamReader, io.Closer, error) {
	rr, closer, err := Open(path, opt)
	if err != nil {
		return nil, nil, err
	}
	schema, err := rr.InferSchema()
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return &StreamReader{r: rr, schema: schema, chunkSize: chunkSize}, closer, nil
}

func (s *StreamReader) Next() (*tm.Frame, error) {
	if s.chunkSize <= 0 {
		s.chunkSize = 1024
	}
	f := tm.NewFrame(s.schema)
	for len(s.r.buf) > 0 && f.Rows() < s.chunkSize {
		m := s.r.buf[0]
		s.r.buf = s.r.buf[1:]
		s.r.appendObject(f, m)
	}
	for f.Rows() < s.chunkSize {
		var m map[string]any
		if err := s.r.dec.Decode(&m); err != nil {
			if err == io.EOF {
				if f.Rows() == 0 {
					return nil, io.EOF
				}
				return f, nil
			}
			return nil, err
		}
		s.r.appendObject(f, m)
	}
	return f, nil
}

func (s *StreamReader) Schema() tm.Schema { return s.schema }

// StreamWriter appends frames to a JSON Lines file.
type StreamWriter struct {
	enc *json.Encoder
	w   *bufio.Writer
	out io.WriteCloser
}

func NewStreamWriter(path string) (*StreamWriter, error) {
	out, err := iox.CreateMaybeCompressed(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(out)
	return &StreamWriter{enc: json.NewEncoder(w), w: w, out: out}, nil
}

func (s *StreamWriter) Write(f *tm.Frame) error {
	for r := 0; r < f.Rows(); r++ {
		if err := s.enc.Encode(rowMap(f, r)); err != nil {
			return err
		}
	}
	return s.w.Flush()
}

func (s *StreamWriter) Close() error {
	if err := s.w.Flush(); err != nil {
		_ = s.out.Close()
		return err
	}
	return s.out.Close()
}
