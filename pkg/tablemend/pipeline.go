package tablemend

import (
	"context"
	"fmt"
)

// Transform is a mutation or validation applied to a Frame. Implementations
// mutate the frame in place and return it; a referenced column that is
// absent or of the wrong kind is a no-op, not an error.
type Transform interface {
	Name() string
	Apply(ctx context.Context, f *Frame) (*Frame, error)
}

// Pipeline composes a sequence of Transforms.
type Pipeline struct {
	steps []Transform
}

func NewPipeline() *Pipeline { return &Pipeline{} }

func (p *Pipeline) Add(t Transform) *Pipeline {
	p.steps = append(p.steps, t)
	return p
}

// Len reports the number of steps.
func (p *Pipeline) Len() int { return len(p.steps) }

func (p *Pipeline) Run(ctx context.Context, f *Frame) (*Frame, error) {
	var err error
	cur := f
	for _, t := range p.steps {
		cur, err = t.Apply(ctx, cur)
		if err != nil {
			return nil, fmt.Errorf("step %s: %w", t.Name(), err)
		}
	}
	return cur, nil
}
