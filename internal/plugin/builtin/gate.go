// SPDX-License-Identifier: MIT
package builtin

import (
	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"

	"render/internal/buffer"
	"render/internal/midi"
	"render/internal/param"
	"render/internal/plugin"
)

// Gate parameter indices.
const (
	GateThreshold = iota
	GateRatio
	GateKnee
	GateAttack
	GateHold
	GateRelease
	GateRange
)

// Gate is a soft-knee noise gate, one detector per channel. A mono input
// feeds both channels.
type Gate struct {
	gates [2]*dynamics.Gate
}

var _ plugin.Instance = (*Gate)(nil)

// NewGate returns a gate closing below -40 dB.
func NewGate() *Gate {
	g := &Gate{}
	for ch := range g.gates {
		g.gates[ch], _ = dynamics.NewGate(44100)
	}
	for i, spec := range g.Parameters() {
		g.SetParameter(i, spec.Range.Default)
	}
	return g
}

// Parameters implements plugin.Instance.
func (g *Gate) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "threshold", Label: "dB", Range: param.Range{Min: -80, Max: 0, Default: -40}, Automatable: true, Format: param.DecibelFormatter},
		{Name: "ratio", Range: param.Range{Min: 1, Max: 100, Skew: 0.5, Default: 10}, Automatable: true},
		{Name: "knee", Label: "dB", Range: param.Range{Min: 0, Max: 24, Default: 6}, Automatable: true},
		{Name: "attack", Label: "ms", Range: param.Range{Min: 0.1, Max: 1000, Skew: 0.3, Default: 0.1}, Automatable: true, Format: param.TimeFormatter},
		{Name: "hold", Label: "ms", Range: param.Range{Min: 0, Max: 5000, Skew: 0.3, Default: 50}, Automatable: true, Format: param.TimeFormatter},
		{Name: "release", Label: "ms", Range: param.Range{Min: 1, Max: 5000, Skew: 0.3, Default: 100}, Automatable: true, Format: param.TimeFormatter},
		{Name: "range", Label: "dB", Range: param.Range{Min: -120, Max: 0, Default: -80}, Automatable: true, Format: param.DecibelFormatter},
	}
}

// SetParameter implements plugin.Instance.
func (g *Gate) SetParameter(index int, value float64) {
	for _, gate := range g.gates {
		switch index {
		case GateThreshold:
			_ = gate.SetThreshold(value)
		case GateRatio:
			_ = gate.SetRatio(value)
		case GateKnee:
			_ = gate.SetKnee(value)
		case GateAttack:
			_ = gate.SetAttack(value)
		case GateHold:
			_ = gate.SetHold(value)
		case GateRelease:
			_ = gate.SetRelease(value)
		case GateRange:
			_ = gate.SetRange(value)
		}
	}
}

func (g *Gate) Prepare(sampleRate, _ int) error {
	for _, gate := range g.gates {
		if err := gate.SetSampleRate(float64(sampleRate)); err != nil {
			return err
		}
		gate.Reset()
	}
	return nil
}

// Reset closes the gate.
func (g *Gate) Reset() {
	for _, gate := range g.gates {
		gate.Reset()
	}
}

func (g *Gate) Close() error { return nil }

// Process implements plugin.Instance. A closed gate attenuates to the range
// floor; it is not an error.
func (g *Gate) Process(in, out *buffer.Buffer, _ []midi.Event) error {
	out.Clear()
	out.MixDown(in)
	for ch := range min(out.Channels(), len(g.gates)) {
		g.gates[ch].ProcessInPlace(out.Channel(ch))
	}
	return nil
}
