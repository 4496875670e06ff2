// SPDX-License-Identifier: MIT
package builtin

import (
	"math"

	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-vecmath"

	"render/internal/buffer"
	"render/internal/midi"
	"render/internal/param"
	"render/internal/plugin"
)

// Gain parameter indices.
const (
	GainLevel = iota
	GainPan
	GainMute
)

// Gain scales and pans its input.
type Gain struct {
	db, pan float64
	mute    bool
}

var _ plugin.Instance = (*Gain)(nil)

// NewGain returns a unity gain, centered.
func NewGain() *Gain { return &Gain{} }

// Parameters implements plugin.Instance.
func (g *Gain) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "gain", Label: "dB", Range: param.Range{Min: -60, Max: 12}, Automatable: true, Format: param.DecibelFormatter},
		{Name: "pan", Range: param.Range{Min: -1, Max: 1}, Automatable: true, Format: param.PanFormatter},
		{Name: "mute", Range: param.Range{Min: 0, Max: 1, Step: 1}, Automatable: true, Format: param.OnOffFormatter},
	}
}

// SetParameter implements plugin.Instance.
func (g *Gain) SetParameter(index int, value float64) {
	switch index {
	case GainLevel:
		g.db = value
	case GainPan:
		g.pan = value
	case GainMute:
		g.mute = value >= 0.5
	}
}

func (g *Gain) Prepare(int, int) error { return nil }
func (g *Gain) Reset()                 {}
func (g *Gain) Close() error           { return nil }

// Process implements plugin.Instance. Muting yields silence, not an error.
func (g *Gain) Process(in, out *buffer.Buffer, _ []midi.Event) error {
	if g.mute {
		out.Clear()
		return nil
	}
	linear := 0.0
	if g.db > -60 {
		linear = math.Pow(10, g.db/20)
	}
	// Constant power pan law.
	angle := (g.pan + 1) * math.Pi / 4
	gains := [2]float64{math.Cos(angle) * math.Sqrt2, math.Sin(angle) * math.Sqrt2}
	for ch := range out.Channels() {
		vecmath.ScaleBlock(out.Channel(ch), in.Channel(min(ch, in.Channels()-1)), linear*gains[min(ch, 1)])
	}
	return nil
}

// Delay parameter indices.
const (
	DelayTime = iota
	DelayFeedback
	DelayMix
)

// Delay is a stereo feedback delay with a dry/wet mix. A mono input feeds
// both lines.
type Delay struct {
	lines [2]*effects.Delay
}

var _ plugin.Instance = (*Delay)(nil)

// NewDelay returns a 250 ms delay.
func NewDelay() *Delay {
	d := &Delay{}
	for ch := range d.lines {
		d.lines[ch], _ = effects.NewDelay(44100)
	}
	for i, spec := range d.Parameters() {
		d.SetParameter(i, spec.Range.Default)
	}
	return d
}

// Parameters implements plugin.Instance.
func (d *Delay) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "time", Label: "ms", Range: param.Range{Min: 1, Max: 2000, Default: 250}, Automatable: true, Format: param.TimeFormatter},
		{Name: "feedback", Range: param.Range{Min: 0, Max: 0.95, Default: 0.35}, Automatable: true, Format: param.PercentFormatter},
		{Name: "mix", Range: param.Range{Min: 0, Max: 1, Default: 0.3}, Automatable: true, Format: param.PercentFormatter},
	}
}

// SetParameter implements plugin.Instance. Values arrive clamped to the
// declared ranges, which sit inside what the delay lines accept.
func (d *Delay) SetParameter(index int, value float64) {
	for _, line := range d.lines {
		switch index {
		case DelayTime:
			_ = line.SetTime(value / 1000)
		case DelayFeedback:
			_ = line.SetFeedback(value)
		case DelayMix:
			_ = line.SetMix(value)
		}
	}
}

// Prepare resizes the delay lines for sampleRate and clears them.
func (d *Delay) Prepare(sampleRate, _ int) error {
	for _, line := range d.lines {
		if err := line.SetSampleRate(float64(sampleRate)); err != nil {
			return err
		}
		line.Reset()
	}
	return nil
}

// Reset clears the delay lines.
func (d *Delay) Reset() {
	for _, line := range d.lines {
		line.Reset()
	}
}

func (d *Delay) Close() error { return nil }

// Process implements plugin.Instance.
func (d *Delay) Process(in, out *buffer.Buffer, _ []midi.Event) error {
	out.Clear()
	out.MixDown(in)
	for ch := range min(out.Channels(), len(d.lines)) {
		d.lines[ch].ProcessInPlace(out.Channel(ch))
	}
	return nil
}
