// SPDX-License-Identifier: MIT
/*
Package audio implements the offline render engine. An Engine owns a
registry of named processors, at most one compiled processing graph and a
growing stereo output buffer:
- Processors are created through the engine's factories and live until they
  are replaced, removed or the engine is closed.
- LoadGraph compiles before it swaps, so a rejected graph leaves the
  previous one in place.
- Render runs the graph block by block and appends the mix to the output.

Every method is safe for concurrent use; calls are serialized by one mutex.
*/
package audio

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"render/internal/analysis"
	"render/internal/buffer"
	"render/internal/config"
	"render/internal/graph"
	"render/internal/log"
	"render/internal/param"
	"render/internal/plugin"
	"render/internal/plugin/builtin"
	"render/internal/processor"
	"render/internal/transport"
)

var logger = log.For("engine")

// Channels is the output channel count.
const Channels = processor.Channels

// Option configures an Engine.
type Option func(*Engine)

// WithReplaceExisting makes factories replace a processor registered under
// the same name instead of failing with ErrDuplicateName. The old
// processor is closed first.
func WithReplaceExisting() Option {
	return func(e *Engine) { e.replace = true }
}

// WithPluginHost sets the host plugin processors are loaded through. The
// default host knows the builtin plugins.
func WithPluginHost(h plugin.Host) Option {
	return func(e *Engine) { e.host = h }
}

// WithTransport sends a transport.Report after every successful render.
// The engine does not close the transport.
func WithTransport(t transport.Transport) Option {
	return func(e *Engine) { e.transport = t }
}

type Engine struct {
	mu sync.Mutex

	format    processor.Format
	replace   bool
	host      plugin.Host
	transport transport.Transport

	// Processor registry. names keeps creation order.
	procs map[string]*processor.Processor
	names []string

	graph *graph.Graph
	pool  *buffer.Pool
	mix   *buffer.Buffer

	output *buffer.Arena
	seq    uint32
	closed bool
}

// NewEngine creates an engine rendering at sampleRate in blocks of
// blockSize frames.
func NewEngine(sampleRate, blockSize int, opts ...Option) (*Engine, error) {
	if sampleRate < config.MinSampleRate || sampleRate > config.MaxSampleRate {
		return nil, fmt.Errorf("%w: sample rate %d outside [%d, %d]", ErrConfiguration, sampleRate, config.MinSampleRate, config.MaxSampleRate)
	}
	if blockSize <= 0 || blockSize > config.MaxBlockSize {
		return nil, fmt.Errorf("%w: block size %d outside [1, %d]", ErrConfiguration, blockSize, config.MaxBlockSize)
	}

	e := &Engine{
		format: processor.Format{SampleRate: sampleRate, BlockSize: blockSize},
		procs:  make(map[string]*processor.Processor),
		pool:   buffer.NewPool(Channels, blockSize),
		mix:    buffer.New(Channels, blockSize),
		output: buffer.NewArena(Channels),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.host == nil {
		e.host = builtin.NewHost()
	}

	logger.Debugf("engine created: %d Hz, block %d", sampleRate, blockSize)
	return e, nil
}

// NewEngineFromConfig creates an engine with the format and options of cfg.
// Processors and the graph are not built; see package project.
func NewEngineFromConfig(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg.Engine.ReplaceExisting {
		opts = append([]Option{WithReplaceExisting()}, opts...)
	}
	return NewEngine(cfg.Engine.SampleRate, cfg.Engine.BlockSize, opts...)
}

// SampleRate returns the render sample rate.
func (e *Engine) SampleRate() int { return e.format.SampleRate }

// BlockSize returns the render block size in frames.
func (e *Engine) BlockSize() int { return e.format.BlockSize }

// Host returns the plugin host processors are loaded through.
func (e *Engine) Host() plugin.Host { return e.host }

// MakeOscillatorProcessor creates a sine oscillator at frequency Hz.
func (e *Engine) MakeOscillatorProcessor(name string, frequency float64) (*processor.Processor, error) {
	return e.register(name, func(f processor.Format) (*processor.Processor, error) {
		return processor.NewOscillator(name, f, frequency)
	})
}

// MakePlaybackProcessor creates a processor that plays data, shaped
// (channels, samples). data is copied.
func (e *Engine) MakePlaybackProcessor(name string, data [][]float64) (*processor.Processor, error) {
	return e.register(name, func(f processor.Format) (*processor.Processor, error) {
		return processor.NewPlayback(name, f, data)
	})
}

// MakePluginProcessor loads the plugin identified by id, either
// "builtin:<name>" or a file path, and wraps it in a processor. Load
// failures match ErrPluginLoad and register nothing.
func (e *Engine) MakePluginProcessor(name, id string) (*processor.Processor, error) {
	return e.register(name, func(f processor.Format) (*processor.Processor, error) {
		return processor.NewPlugin(name, f, e.host, id)
	})
}

// MakeGenericProcessor creates a processor around fn with the declared
// parameters.
func (e *Engine) MakeGenericProcessor(name string, fn processor.GenericFunc, specs ...param.Spec) (*processor.Processor, error) {
	return e.register(name, func(f processor.Format) (*processor.Processor, error) {
		return processor.NewGeneric(name, f, fn, specs...)
	})
}

func (e *Engine) register(name string, build func(processor.Format) (*processor.Processor, error)) (*processor.Processor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrClosed
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty processor name", ErrConfiguration)
	}
	old, exists := e.procs[name]
	if exists && !e.replace {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	p, err := build(e.format)
	if err != nil {
		return nil, fmt.Errorf("create processor %q: %w", name, err)
	}

	if exists {
		logger.Debugf("replacing processor %q", name)
		e.retire(old)
	} else {
		e.names = append(e.names, name)
	}
	e.procs[name] = p
	return p, nil
}

// retire closes p. A loaded graph that still routes through p is dropped
// because it can no longer render.
func (e *Engine) retire(p *processor.Processor) {
	if e.graph != nil && e.graph.Contains(p) {
		logger.Warnf("processor %q left the active graph; graph unloaded", p.Name())
		e.dropGraph()
	}
	if err := p.Close(); err != nil {
		logger.Errorf("close processor %q: %v", p.Name(), err)
	}
}

func (e *Engine) dropGraph() {
	if e.graph == nil {
		return
	}
	e.graph.Release(e.pool)
	e.graph = nil
}

// RemoveProcessor closes the processor registered under name and forgets
// it.
func (e *Engine) RemoveProcessor(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	p, ok := e.procs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	e.retire(p)
	delete(e.procs, name)
	for i, n := range e.names {
		if n == name {
			e.names = append(e.names[:i], e.names[i+1:]...)
			break
		}
	}
	return nil
}

// Processor returns the processor registered under name.
func (e *Engine) Processor(name string) (*processor.Processor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.procs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// ProcessorNames returns registered names in creation order.
func (e *Engine) ProcessorNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.names...)
}

// WithProcessor runs fn on the processor registered under name while
// holding the engine lock, so parameter changes cannot interleave with a
// render.
func (e *Engine) WithProcessor(name string, fn func(*processor.Processor) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.procs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return fn(p)
}

// registry is the unlocked view graph.Compile sees while LoadGraph holds
// the engine lock.
type registry map[string]*processor.Processor

func (r registry) Lookup(name string) (*processor.Processor, bool) {
	p, ok := r[name]
	return p, ok
}

// LoadGraph replaces the active graph. Every node must be a live processor
// of this engine. On error the previous graph stays active.
func (e *Engine) LoadGraph(nodes []graph.Node) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	g, err := graph.Compile(nodes, registry(e.procs))
	if err != nil {
		return err
	}
	e.dropGraph()
	g.Attach(e.pool)
	e.graph = g
	logger.Debugf("graph loaded: %v", g.Order())
	return nil
}

// Order returns the execution order of the active graph, or nil.
func (e *Engine) Order() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return nil
	}
	return e.graph.Order()
}

// Sinks returns the active graph's sink nodes in execution order, or nil.
func (e *Engine) Sinks() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return nil
	}
	return e.graph.Sinks()
}

// Render renders seconds of audio and appends it to the output. The frame
// count is seconds*sampleRate rounded to the nearest integer; seconds must
// lie in [0, config.MaxRenderSeconds]. Without a
// graph the output grows by silence. A failing node aborts the render with
// ErrRender and leaves the output as it was.
func (e *Engine) Render(seconds float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrClosed
	}
	if math.IsNaN(seconds) || seconds < 0 || seconds > config.MaxRenderSeconds {
		return fmt.Errorf("%w: render duration %v outside [0, %g]", ErrConfiguration, seconds, config.MaxRenderSeconds)
	}

	total := int(math.Round(seconds * float64(e.format.SampleRate)))
	start := e.output.Len()

	if e.graph == nil {
		e.output.AppendSilence(total)
	} else {
		block := e.format.BlockSize
		for done := 0; done < total; {
			n := min(block, total-done)
			if err := e.graph.RenderBlock(n, e.mix); err != nil {
				e.output.Truncate(start)
				return fmt.Errorf("%w: %w", ErrRender, err)
			}
			if err := e.output.Append(e.mix); err != nil {
				e.output.Truncate(start)
				return fmt.Errorf("%w: %w", ErrRender, err)
			}
			done += n
		}
	}

	if e.transport != nil {
		e.report(start, total)
	}
	return nil
}

func (e *Engine) report(start, rendered int) {
	view := e.output.View()
	region := make([][]float64, len(view))
	for c, ch := range view {
		region[c] = ch[start:]
	}
	res, err := analysis.Analyze(region, e.format.SampleRate)
	if err != nil {
		logger.Warnf("analysis: %v", err)
	}
	e.seq++
	r := &transport.Report{
		Sequence:   e.seq,
		Timestamp:  time.Now().UnixNano(),
		SampleRate: e.format.SampleRate,
		Rendered:   int64(rendered),
		Total:      int64(e.output.Len()),
		Peak:       res.Peak,
		RMS:        res.RMS,
		Dominant:   res.Dominant,
		Bands:      res.Bands,
	}
	if err := e.transport.Send(r); err != nil {
		logger.Warnf("send render report: %v", err)
	}
}

// Audio returns a copy of everything rendered so far, shaped (2, Samples()).
func (e *Engine) Audio() [][]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output.Snapshot()
}

// Samples returns the number of frames rendered so far.
func (e *Engine) Samples() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.output.Len()
}

// ClearAudio drops the rendered output and rewinds every processor to the
// start of its timeline. Processors and the graph are kept.
func (e *Engine) ClearAudio() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.output.Reset()
	for _, name := range e.names {
		e.procs[name].Reset()
	}
}

// Close closes every processor and releases the graph and output. It is
// safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.dropGraph()

	var errs []error
	for _, name := range e.names {
		if err := e.procs[name].Close(); err != nil {
			errs = append(errs, fmt.Errorf("close processor %q: %w", name, err))
		}
	}
	clear(e.procs)
	e.names = nil
	e.output.Reset()
	logger.Debugf("engine closed")
	return errors.Join(errs...)
}
