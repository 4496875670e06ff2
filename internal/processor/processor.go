// SPDX-License-Identifier: MIT
/*
Package processor implements the graph's audio units. Every unit is a
*Processor; the kind only selects the private kernel that fills a block, so
the graph and engine never see kind-specific types.

Each processor keeps its own timeline: the number of samples it has produced
since it was created or last Reset. MIDI note times are measured on that
timeline.
*/
package processor

import (
	"errors"
	"fmt"

	"render/internal/buffer"
	"render/internal/midi"
	"render/internal/param"
	"render/internal/patch"
)

// Kind names the processor variant.
type Kind int

const (
	KindOscillator Kind = iota
	KindPlayback
	KindPlugin
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindOscillator:
		return "oscillator"
	case KindPlayback:
		return "playback"
	case KindPlugin:
		return "plugin"
	case KindGeneric:
		return "generic"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Channels is the output channel count of every processor.
const Channels = 2

var (
	ErrClosed = errors.New("processor closed")
	ErrFormat = errors.New("invalid render format")
)

// Format is the render format a processor is created for.
type Format struct {
	SampleRate int
	BlockSize  int
}

func (f Format) validate() error {
	if f.SampleRate <= 0 || f.BlockSize <= 0 {
		return fmt.Errorf("%w: sample rate %d, block size %d", ErrFormat, f.SampleRate, f.BlockSize)
	}
	return nil
}

// paramTable is the parameter surface shared by local stores and plugin
// handles.
type paramTable interface {
	Len() int
	Describe() []param.Description
	Range(index int) (param.Range, error)
	Value(index int) (float64, error)
	Set(index int, value float64) (float64, error)
	Name(index int) (string, error)
	Text(index int) (string, error)
}

type kernel interface {
	process(p *Processor, inputs []*buffer.Buffer, out *buffer.Buffer) error
	reset()
	close() error
}

// Processor is one node of a processing graph.
type Processor struct {
	name   string
	kind   Kind
	format Format
	params paramTable
	kernel kernel

	notes    *midi.Scheduler
	events   []midi.Event
	position int64

	recording bool
	recorded  *buffer.Arena

	closed bool
}

// Compile-time interface check.
var _ patch.Target = (*Processor)(nil)

func newProcessor(name string, kind Kind, f Format, params paramTable, k kernel) *Processor {
	return &Processor{
		name:   name,
		kind:   kind,
		format: f,
		params: params,
		kernel: k,
		notes:  midi.NewScheduler(f.SampleRate),
		events: make([]midi.Event, 0, 16),
	}
}

// Name returns the immutable processor name.
func (p *Processor) Name() string { return p.name }

// Kind returns the processor variant.
func (p *Processor) Kind() Kind { return p.kind }

// Format returns the render format.
func (p *Processor) Format() Format { return p.format }

// Position returns the number of samples produced on the local timeline.
func (p *Processor) Position() int64 { return p.position }

// Closed reports whether Close has been called.
func (p *Processor) Closed() bool { return p.closed }

// ProcessBlock renders out.Len() frames, reading the upstream outputs in
// inputs. out must have Channels channels and at most BlockSize frames.
func (p *Processor) ProcessBlock(inputs []*buffer.Buffer, out *buffer.Buffer) error {
	if p.closed {
		return fmt.Errorf("%w: %s", ErrClosed, p.name)
	}
	frames := int64(out.Len())
	p.events = p.notes.EventsInRange(p.events[:0], p.position, p.position+frames)
	if err := p.kernel.process(p, inputs, out); err != nil {
		return err
	}
	if p.recording {
		if err := p.recorded.Append(out); err != nil {
			return err
		}
	}
	p.position += frames
	return nil
}

// Reset rewinds the local timeline so scheduled notes play again, clears
// kernel state and drops recorded audio. Parameters keep their values.
func (p *Processor) Reset() {
	p.position = 0
	p.kernel.reset()
	if p.recorded != nil {
		p.recorded.Reset()
	}
}

// Close releases the kernel's resources. It is safe to call more than once;
// only the first call does anything.
func (p *Processor) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.notes.Clear()
	p.recorded = nil
	return p.kernel.close()
}

// --- Parameters ---

// ParameterCount returns the number of parameters.
func (p *Processor) ParameterCount() int { return p.params.Len() }

// ParametersDescription returns the parameter table in index order.
func (p *Processor) ParametersDescription() []param.Description { return p.params.Describe() }

// ParameterRange returns the legal envelope of parameter index.
func (p *Processor) ParameterRange(index int) (param.Range, error) { return p.params.Range(index) }

// Parameter returns the current value of parameter index.
func (p *Processor) Parameter(index int) (float64, error) { return p.params.Value(index) }

// SetParameter clamps value into range and applies it.
func (p *Processor) SetParameter(index int, value float64) error {
	_, err := p.params.Set(index, value)
	return err
}

// ParameterName returns the name of parameter index.
func (p *Processor) ParameterName(index int) (string, error) { return p.params.Name(index) }

// ParameterIndex returns the index of the parameter called name.
func (p *Processor) ParameterIndex(name string) (int, bool) {
	for i := range p.params.Len() {
		if n, err := p.params.Name(i); err == nil && n == name {
			return i, true
		}
	}
	return 0, false
}

// ParameterText returns the display text of parameter index.
func (p *Processor) ParameterText(index int) (string, error) { return p.params.Text(index) }

// Patch captures the automatable parameters.
func (p *Processor) Patch() (patch.Patch, error) { return patch.Capture(p) }

// SetPatch applies pt entry by entry.
func (p *Processor) SetPatch(pt patch.Patch) error { return patch.Apply(p, pt) }

// --- MIDI ---

// AddMidiNote schedules a note on the local timeline.
func (p *Processor) AddMidiNote(note, velocity int, start, duration float64) error {
	return p.notes.AddNote(note, velocity, start, duration)
}

// ClearMidi drops every scheduled note.
func (p *Processor) ClearMidi() { p.notes.Clear() }

// MidiNoteCount returns the number of scheduled notes.
func (p *Processor) MidiNoteCount() int { return p.notes.Len() }

// LoadMidi schedules the notes of a standard MIDI file.
func (p *Processor) LoadMidi(path string, clearPrevious bool) (int, error) {
	return p.notes.LoadSMF(path, clearPrevious)
}

// --- Recording ---

// SetRecording turns capture of this processor's own output on or off.
// Turning it on discards anything recorded before.
func (p *Processor) SetRecording(on bool) {
	p.recording = on
	if on {
		p.recorded = buffer.NewArena(Channels)
	}
}

// Recording reports whether output capture is on.
func (p *Processor) Recording() bool { return p.recording }

// Audio returns a copy of the recorded output, or nil when recording was
// never enabled.
func (p *Processor) Audio() [][]float64 {
	if p.recorded == nil {
		return nil
	}
	return p.recorded.Snapshot()
}
