// SPDX-License-Identifier: MIT
/*
Package graph compiles a list of processors and their upstream names into a
fixed execution order and routes audio between them block by block.

Compilation is all-or-nothing: a node list that references an unknown name,
repeats a processor or contains a cycle is rejected and nothing is built.
Nodes with no dependency between them run in the order they were declared.
*/
package graph

import (
	"slices"
	"strings"

	"render/internal/buffer"
	"render/internal/processor"
)

// Node is one graph entry: a processor and the names of the processors whose
// output it reads, in order.
type Node struct {
	Processor *processor.Processor
	Inputs    []string
}

// Registry answers whether a processor is the live one registered under
// its name.
type Registry interface {
	Lookup(name string) (*processor.Processor, bool)
}

type compiled struct {
	proc   *processor.Processor
	inputs []int
	sink   bool
}

// Graph is a compiled node list. It is not safe for concurrent use.
type Graph struct {
	nodes []compiled
	order []int
	index map[string]int

	outputs []*buffer.Buffer
	ins     [][]*buffer.Buffer
}

// Compile validates nodes against reg and computes the execution order.
// reg may be nil to skip the registry check.
func Compile(nodes []Node, reg Registry) (*Graph, error) {
	g := &Graph{
		nodes: make([]compiled, len(nodes)),
		index: make(map[string]int, len(nodes)),
	}
	seen := make(map[*processor.Processor]bool, len(nodes))

	for i, n := range nodes {
		p := n.Processor
		if p == nil {
			return nil, invalid(ErrUnknownNode, "", "node %d has no processor", i)
		}
		name := p.Name()
		if seen[p] {
			return nil, invalid(ErrDuplicateNode, name, "processor listed twice")
		}
		if _, dup := g.index[name]; dup {
			return nil, invalid(ErrDuplicateNode, name, "name listed twice")
		}
		if p.Closed() {
			return nil, invalid(ErrUnknownNode, name, "processor is closed")
		}
		if reg != nil {
			if cur, ok := reg.Lookup(name); !ok || cur != p {
				return nil, invalid(ErrUnknownNode, name, "processor is not registered with this engine")
			}
		}
		seen[p] = true
		g.index[name] = i
		g.nodes[i] = compiled{proc: p, sink: true}
	}

	indegree := make([]int, len(nodes))
	outgoing := make([][]int, len(nodes))
	for i, n := range nodes {
		name := n.Processor.Name()
		for _, up := range n.Inputs {
			j, ok := g.index[up]
			if !ok {
				return nil, invalid(ErrUnknownNode, up, "referenced by %q", name)
			}
			if j == i {
				return nil, invalid(ErrCycle, name, "node feeds itself")
			}
			g.nodes[i].inputs = append(g.nodes[i].inputs, j)
			g.nodes[j].sink = false
			outgoing[j] = append(outgoing[j], i)
			indegree[i]++
		}
	}

	// Kahn's algorithm, always taking the earliest declared ready node.
	ready := make([]int, 0, len(nodes))
	for i, d := range indegree {
		if d == 0 {
			ready = append(ready, i)
		}
	}
	g.order = make([]int, 0, len(nodes))
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		g.order = append(g.order, i)
		for _, j := range outgoing[i] {
			indegree[j]--
			if indegree[j] == 0 {
				at, _ := slices.BinarySearch(ready, j)
				ready = slices.Insert(ready, at, j)
			}
		}
	}

	if len(g.order) != len(nodes) {
		var stuck []string
		for i, d := range indegree {
			if d > 0 {
				stuck = append(stuck, g.nodes[i].proc.Name())
			}
		}
		return nil, invalid(ErrCycle, "", "involving %s", strings.Join(stuck, ", "))
	}
	return g, nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Order returns the node names in execution order.
func (g *Graph) Order() []string {
	out := make([]string, len(g.order))
	for k, i := range g.order {
		out[k] = g.nodes[i].proc.Name()
	}
	return out
}

// Sinks returns the names of nodes with no downstream consumer, in
// execution order.
func (g *Graph) Sinks() []string {
	var out []string
	for _, i := range g.order {
		if g.nodes[i].sink {
			out = append(out, g.nodes[i].proc.Name())
		}
	}
	return out
}

// Inputs returns the upstream names of node name in declared order.
func (g *Graph) Inputs(name string) ([]string, bool) {
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(g.nodes[i].inputs))
	for k, j := range g.nodes[i].inputs {
		out[k] = g.nodes[j].proc.Name()
	}
	return out, true
}

// Contains reports whether p is a node of g.
func (g *Graph) Contains(p *processor.Processor) bool {
	i, ok := g.index[p.Name()]
	return ok && g.nodes[i].proc == p
}

// Attach takes one routing buffer per node from pool.
func (g *Graph) Attach(pool *buffer.Pool) {
	g.outputs = make([]*buffer.Buffer, len(g.nodes))
	g.ins = make([][]*buffer.Buffer, len(g.nodes))
	for i, n := range g.nodes {
		g.outputs[i] = pool.Get()
		g.ins[i] = make([]*buffer.Buffer, len(n.inputs))
	}
}

// Release hands the routing buffers back to pool.
func (g *Graph) Release(pool *buffer.Pool) {
	for i, b := range g.outputs {
		pool.Put(b)
		g.outputs[i] = nil
	}
	g.outputs = nil
	g.ins = nil
}

// attached reports whether routing buffers are held.
func (g *Graph) attached() bool { return g.outputs != nil }

// RenderBlock runs every node for frames samples and sums the sinks into mix.
// The graph must be attached and frames must not exceed the pool's frame
// size. A processor error or a NaN/Inf sample, in a node output or in the
// mix after a sink is summed into it, aborts the block with a *NodeError.
func (g *Graph) RenderBlock(frames int, mix *buffer.Buffer) error {
	mix.SetLen(frames)
	mix.Clear()
	for _, i := range g.order {
		n := &g.nodes[i]
		out := g.outputs[i]
		out.SetLen(frames)
		out.Clear()
		ins := g.ins[i]
		for k, j := range n.inputs {
			ins[k] = g.outputs[j]
		}
		if err := n.proc.ProcessBlock(ins, out); err != nil {
			return &NodeError{Node: n.proc.Name(), Err: err}
		}
		if !out.Finite() {
			return &NodeError{Node: n.proc.Name(), Err: ErrNonFinite}
		}
		if n.sink {
			if err := mix.Mix(out); err != nil {
				return &NodeError{Node: n.proc.Name(), Err: err}
			}
			// Finite sinks can still overflow once summed.
			if !mix.Finite() {
				return &NodeError{Node: n.proc.Name(), Err: ErrNonFinite}
			}
		}
	}
	return nil
}
