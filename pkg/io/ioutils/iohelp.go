package ioutils

import (
	"bufio"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
)

func looksGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}

// OpenMaybeCompressed opens a file path or stdin ("-") and returns a reader.
// Gzip input is detected by extension or magic bytes and decompressed
// transparently.
func OpenMaybeCompressed(path string) (io.ReadCloser, error) {
	if path == "-" || path == "" {
		br := bufio.NewReader(os.Stdin)
		b, err := br.Peek(2)
		if err == nil && looksGzip(b) {
			zr, err := gzip.NewReader(br)
			if err != nil {
				return nil, err
			}
			return zr, nil
		}
		return io.NopCloser(br), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".gz" {
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &readCloser{r: zr, close: func() error {
			_ = zr.Close()
			return f.Close()
		}}, nil
	}
	br := bufio.NewReader(f)
	b, err := br.Peek(2)
	if err == nil && looksGzip(b) {
		zr, err := gzip.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		return &readCloser{r: zr, close: func() error {
			_ = zr.Close()
			return f.Close()
		}}, nil
	}
	return &readCloser{r: br, close: f.Close}, nil
}

// CreateMaybeCompressed creates a file (or stdout if path is "-") and returns
// a writer. A ".gz" extension turns on gzip compression. Close flushes all
// buffered and compressed data.
func CreateMaybeCompressed(path string) (io.WriteCloser, error) {
	if path == "-" || path == "" {
		return &writeCloser{w: bufio.NewWriter(os.Stdout)}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(path) == ".gz" {
		zw := gzip.NewWriter(f)
		return &writeCloser{w: zw, close: func() error {
			if err := zw.Close(); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		}}, nil
	}
	return &writeCloser{w: bufio.NewWriter(f), close: f.Close}, nil
}

type readCloser struct {
	r     io.Reader
	close func() error
}

func (r *readCloser) Read(p []byte) (int, error) { return r.r.Read(p) }

func (r *readCloser) Close() error {
	if r.close != nil {
		return r.close()
	}
	return nil
}

type writeCloser struct {
	w     io.Writer
	close func() error
}

func (w *writeCloser) Write(p []byte) (int, error) { return w.w.Write(p) }

func (w *writeCloser) Close() error {
	if bw, ok := w.w.(*bufio.Writer); ok {
		if err := bw.Flush(); err != nil {
			if w.close != nil {
				_ = w.close()
			}
			return err
		}
	}
	if w.close != nil {
		return w.close()
	}
	return nil
}
