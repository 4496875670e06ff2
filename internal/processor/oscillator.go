// SPDX-License-Identifier: MIT
package processor

import (
	"fmt"
	"math"

	"render/internal/buffer"
	"render/internal/param"
)

// MinFrequency is the lowest oscillator frequency in Hz.
const MinFrequency = 0.01

// OscillatorFrequency is the index of the oscillator's only parameter.
const OscillatorFrequency = 0

type oscillator struct {
	store *param.Store
	phase float64 // cycles, [0, 1)
}

// NewOscillator returns a sine oscillator. frequency must lie within
// [MinFrequency, SampleRate/2].
func NewOscillator(name string, f Format, frequency float64) (*Processor, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	nyquist := float64(f.SampleRate) / 2
	if math.IsNaN(frequency) || frequency < MinFrequency || frequency > nyquist {
		return nil, fmt.Errorf("%w: frequency %v outside [%v, %v]", param.ErrValueRange, frequency, MinFrequency, nyquist)
	}
	store, err := param.NewStore(param.Spec{
		Name:        "frequency",
		Label:       "Hz",
		Range:       param.Range{Min: MinFrequency, Max: nyquist, Skew: 0.25, Default: frequency},
		Automatable: true,
		Format:      param.FrequencyFormatter,
	})
	if err != nil {
		return nil, err
	}
	return newProcessor(name, KindOscillator, f, store, &oscillator{store: store}), nil
}

func (o *oscillator) process(p *Processor, _ []*buffer.Buffer, out *buffer.Buffer) error {
	freq, _ := o.store.Value(OscillatorFrequency)
	inc := freq / float64(p.format.SampleRate)
	left := out.Channel(0)
	phase := o.phase
	for i := range left {
		left[i] = math.Sin(2 * math.Pi * phase)
		phase += inc
		if phase >= 1 {
			phase -= 1
		}
	}
	o.phase = phase
	for ch := 1; ch < out.Channels(); ch++ {
		copy(out.Channel(ch), left)
	}
	return nil
}

func (o *oscillator) reset()       { o.phase = 0 }
func (o *oscillator) close() error { return nil }
