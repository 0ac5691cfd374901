package tablemend

import (
	"context"
	"io"
)

// ChunkSource yields frames in chunks until io.EOF.
type ChunkSource interface {
	Next() (*Frame, error)
}

// ChunkSink consumes frames, typically writing them out.
type ChunkSink interface {
	Write(*Frame) error
	Close() error
}

// RunStream pulls chunks from src, applies the pipeline, and writes to sink.
// Transforms that need whole columns (fills, drops based on missingness) do
// not belong in a streamed pipeline; callers run those in batch mode.
// Cancelling ctx stops the run at the next chunk boundary.
func RunStream(ctx context.Context, p *Pipeline, src ChunkSource, sink ChunkSink) error {
	defer func() { _ = sink.Close() }()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		f, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		out, err := p.Run(ctx, f)
		if err != nil {
			return err
		}
		if err := sink.Write(out); err != nil {
			return err
		}
	}
}
