// SPDX-License-Identifier: MIT
package processor

import (
	"errors"
	"fmt"

	"render/internal/buffer"
	"render/internal/midi"
	"render/internal/param"
)

var ErrNoFunc = errors.New("generic processor needs a function")

// Context is what a GenericFunc sees of its processor for one block.
type Context struct {
	SampleRate int
	Position   int64        // first sample of the block on the local timeline
	Events     []midi.Event // notes due in this block
	params     *param.Store
}

// Param returns the current value of parameter index, or 0 when it does not
// exist.
func (c *Context) Param(index int) float64 {
	v, _ := c.params.Value(index)
	return v
}

// GenericFunc fills out from inputs. out arrives zeroed.
type GenericFunc func(ctx *Context, inputs []*buffer.Buffer, out *buffer.Buffer) error

type generic struct {
	fn  GenericFunc
	ctx Context
}

// NewGeneric wraps fn with an optional parameter table.
func NewGeneric(name string, f Format, fn GenericFunc, specs ...param.Spec) (*Processor, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrNoFunc
	}
	store, err := param.NewStore(specs...)
	if err != nil {
		return nil, err
	}
	g := &generic{fn: fn, ctx: Context{SampleRate: f.SampleRate, params: store}}
	return newProcessor(name, KindGeneric, f, store, g), nil
}

func (g *generic) process(p *Processor, inputs []*buffer.Buffer, out *buffer.Buffer) error {
	out.Clear()
	g.ctx.Position = p.position
	g.ctx.Events = p.events
	if err := g.fn(&g.ctx, inputs, out); err != nil {
		return fmt.Errorf("%s: %w", p.name, err)
	}
	return nil
}

func (g *generic) reset()       {}
func (g *generic) close() error { return nil }

// Mixer returns a GenericFunc that sums its inputs and applies a gain, with
// the matching parameter table.
func Mixer() (GenericFunc, []param.Spec) {
	specs := []param.Spec{{
		Name:        "gain",
		Range:       param.Range{Min: 0, Max: 2, Default: 1},
		Automatable: true,
		Format:      param.GainFormatter,
	}}
	fn := func(ctx *Context, inputs []*buffer.Buffer, out *buffer.Buffer) error {
		for _, in := range inputs {
			out.MixDown(in)
		}
		out.Scale(ctx.Param(0))
		return nil
	}
	return fn, specs
}
