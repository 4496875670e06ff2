// SPDX-License-Identifier: MIT
package graph

import (
	"errors"
	"math"
	"slices"
	"testing"

	"render/internal/buffer"
	"render/internal/param"
	"render/internal/processor"
)

var testFormat = processor.Format{SampleRate: 1000, BlockSize: 8}

type registry map[string]*processor.Processor

func (r registry) Lookup(name string) (*processor.Processor, bool) {
	p, ok := r[name]
	return p, ok
}

// constant emits value on both channels plus the sum of its inputs.
func constant(t *testing.T, reg registry, name string, value float64) *processor.Processor {
	t.Helper()
	p, err := processor.NewGeneric(name, testFormat, func(_ *processor.Context, ins []*buffer.Buffer, out *buffer.Buffer) error {
		for _, in := range ins {
			out.MixDown(in)
		}
		for ch := range out.Channels() {
			for i := range out.Channel(ch) {
				out.Channel(ch)[i] += value
			}
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	reg[name] = p
	return p
}

func TestCompileOrder(t *testing.T) {
	reg := registry{}
	a := constant(t, reg, "a", 1)
	b := constant(t, reg, "b", 2)
	c := constant(t, reg, "c", 3)
	d := constant(t, reg, "d", 4)

	tests := []struct {
		name      string
		nodes     []Node
		wantOrder []string
		wantSinks []string
	}{
		{
			"declaration order for independent nodes",
			[]Node{{Processor: c}, {Processor: a}, {Processor: b}},
			[]string{"c", "a", "b"},
			[]string{"c", "a", "b"},
		},
		{
			"chain declared backwards",
			[]Node{{Processor: c, Inputs: []string{"b"}}, {Processor: b, Inputs: []string{"a"}}, {Processor: a}},
			[]string{"a", "b", "c"},
			[]string{"c"},
		},
		{
			"diamond",
			[]Node{
				{Processor: d, Inputs: []string{"b", "c"}},
				{Processor: b, Inputs: []string{"a"}},
				{Processor: c, Inputs: []string{"a"}},
				{Processor: a},
			},
			[]string{"a", "b", "c", "d"},
			[]string{"d"},
		},
		{
			"empty",
			nil,
			[]string{},
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Compile(tt.nodes, reg)
			if err != nil {
				t.Fatal(err)
			}
			if got := g.Order(); !slices.Equal(got, tt.wantOrder) {
				t.Errorf("Order() = %v, want %v", got, tt.wantOrder)
			}
			if got := g.Sinks(); !slices.Equal(got, tt.wantSinks) {
				t.Errorf("Sinks() = %v, want %v", got, tt.wantSinks)
			}
		})
	}
}

func TestCompileValidation(t *testing.T) {
	reg := registry{}
	a := constant(t, reg, "a", 1)
	b := constant(t, reg, "b", 1)
	stranger, _ := processor.NewOscillator("stranger", testFormat, 10)
	impostor, _ := processor.NewOscillator("a", testFormat, 10)
	closed := constant(t, reg, "closed", 1)
	_ = closed.Close()

	tests := []struct {
		name   string
		nodes  []Node
		reason error
	}{
		{"self edge", []Node{{Processor: a, Inputs: []string{"a"}}}, ErrCycle},
		{"mutual", []Node{{Processor: a, Inputs: []string{"b"}}, {Processor: b, Inputs: []string{"a"}}}, ErrCycle},
		{"unknown upstream", []Node{{Processor: a, Inputs: []string{"ghost"}}}, ErrUnknownNode},
		{"upstream not a node", []Node{{Processor: a, Inputs: []string{"b"}}}, ErrUnknownNode},
		{"unregistered", []Node{{Processor: stranger}}, ErrUnknownNode},
		{"stale instance", []Node{{Processor: impostor}}, ErrUnknownNode},
		{"closed", []Node{{Processor: closed}}, ErrUnknownNode},
		{"nil processor", []Node{{}}, ErrUnknownNode},
		{"duplicate", []Node{{Processor: a}, {Processor: a}}, ErrDuplicateNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.nodes, reg)
			if !errors.Is(err, ErrValidation) || !errors.Is(err, tt.reason) {
				t.Fatalf("error = %v, want %v", err, tt.reason)
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error type %T", err)
			}
		})
	}
}

func TestCompileNilRegistry(t *testing.T) {
	p, _ := processor.NewOscillator("free", testFormat, 10)
	if _, err := Compile([]Node{{Processor: p}}, nil); err != nil {
		t.Errorf("nil registry should skip lookup: %v", err)
	}
}

func TestRenderBlockRoutesAndSumsSinks(t *testing.T) {
	reg := registry{}
	a := constant(t, reg, "a", 1)
	b := constant(t, reg, "b", 10)
	c := constant(t, reg, "c", 100)
	// a feeds b; b and c are sinks.
	g, err := Compile([]Node{{Processor: a}, {Processor: b, Inputs: []string{"a"}}, {Processor: c}}, reg)
	if err != nil {
		t.Fatal(err)
	}
	pool := buffer.NewPool(processor.Channels, testFormat.BlockSize)
	g.Attach(pool)
	defer g.Release(pool)

	mix := buffer.New(processor.Channels, testFormat.BlockSize)
	if err := g.RenderBlock(5, mix); err != nil {
		t.Fatal(err)
	}
	if mix.Len() != 5 {
		t.Fatalf("mix.Len() = %d", mix.Len())
	}
	for ch := range 2 {
		for _, s := range mix.Channel(ch) {
			if s != 111 {
				t.Fatalf("mix = %v, want 111 (a+b via b, plus c)", mix.Channel(ch))
			}
		}
	}
	if pool.Live() != 3 {
		t.Errorf("pool.Live() = %d", pool.Live())
	}
}

func TestRenderBlockFailures(t *testing.T) {
	reg := registry{}
	nan, _ := processor.NewGeneric("nan", testFormat, func(_ *processor.Context, _ []*buffer.Buffer, out *buffer.Buffer) error {
		out.Channel(1)[0] = math.NaN()
		return nil
	})
	reg["nan"] = nan
	boom := errors.New("boom")
	fail, _ := processor.NewGeneric("fail", testFormat, func(*processor.Context, []*buffer.Buffer, *buffer.Buffer) error {
		return boom
	}, param.Spec{Name: "x", Range: param.Range{Max: 1}})
	reg["fail"] = fail

	tests := []struct {
		name string
		node *processor.Processor
		want error
	}{
		{"nan", nan, ErrNonFinite},
		{"error", fail, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := Compile([]Node{{Processor: tt.node}}, reg)
			if err != nil {
				t.Fatal(err)
			}
			pool := buffer.NewPool(2, 8)
			g.Attach(pool)
			err = g.RenderBlock(8, buffer.New(2, 8))
			var ne *NodeError
			if !errors.As(err, &ne) || ne.Node != tt.node.Name() || !errors.Is(err, tt.want) {
				t.Errorf("error = %v", err)
			}
			g.Release(pool)
			if pool.Live() != 0 || g.attached() {
				t.Error("Release did not return buffers")
			}
		})
	}
}

func TestRenderBlockSumOverflow(t *testing.T) {
	reg := registry{}
	hot := constant(t, reg, "hot", 1e308)
	hotter := constant(t, reg, "hotter", 1e308)
	g, err := Compile([]Node{{Processor: hot}, {Processor: hotter}}, reg)
	if err != nil {
		t.Fatal(err)
	}
	pool := buffer.NewPool(2, 8)
	g.Attach(pool)
	defer g.Release(pool)

	err = g.RenderBlock(8, buffer.New(2, 8))
	var ne *NodeError
	if !errors.As(err, &ne) || !errors.Is(err, ErrNonFinite) {
		t.Fatalf("error = %v, want ErrNonFinite", err)
	}
	if ne.Node != "hotter" {
		t.Errorf("node = %q, want hotter", ne.Node)
	}
}

func TestIntrospection(t *testing.T) {
	reg := registry{}
	a := constant(t, reg, "a", 1)
	b := constant(t, reg, "b", 1)
	g, _ := Compile([]Node{{Processor: b, Inputs: []string{"a", "a"}}, {Processor: a}}, reg)

	if ins, ok := g.Inputs("b"); !ok || !slices.Equal(ins, []string{"a", "a"}) {
		t.Errorf("Inputs(b) = %v, %v", ins, ok)
	}
	if _, ok := g.Inputs("zzz"); ok {
		t.Error("Inputs of unknown node")
	}
	if !g.Contains(a) || g.Len() != 2 {
		t.Error("Contains/Len")
	}
	if !g.Contains(b) || g.attached() {
		t.Error("unattached graph should still contain its nodes")
	}
}
