// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultSize is the transform size Analyze uses.
const DefaultSize = 8192

// Levels returns the absolute peak and RMS of each channel.
func Levels(channels [][]float64) (peak, rms []float64) {
	peak = make([]float64, len(channels))
	rms = make([]float64, len(channels))
	for c, ch := range channels {
		if len(ch) == 0 {
			continue
		}
		peak[c] = math.Max(math.Abs(floats.Max(ch)), math.Abs(floats.Min(ch)))
		rms[c] = floats.Norm(ch, 2) / math.Sqrt(float64(len(ch)))
	}
	return peak, rms
}

// Result summarises a stretch of rendered audio.
type Result struct {
	Peak     []float64
	RMS      []float64
	Dominant float64            // Hz, 0 when the input is silent or empty
	Bands    map[string]float64 // mean energy per DefaultBands entry
}

// Analyze measures channels at sampleRate. The spectrum covers the last
// DefaultSize frames of the channel average.
func Analyze(channels [][]float64, sampleRate int) (Result, error) {
	var r Result
	r.Peak, r.RMS = Levels(channels)
	if len(channels) == 0 || len(channels[0]) == 0 {
		return r, nil
	}

	s, err := NewSpectrum(DefaultSize, float64(sampleRate), Hann)
	if err != nil {
		return r, err
	}

	n := len(channels[0])
	start := max(0, n-DefaultSize)
	mono := make([]float64, n-start)
	for _, ch := range channels {
		if len(ch) == n {
			floats.Add(mono, ch[start:n])
		}
	}
	floats.Scale(1/float64(len(channels)), mono)
	s.Process(mono)

	if floats.Max(s.magnitude[1:]) > 0 {
		r.Dominant = s.Dominant()
	}

	bands := DefaultBands(float64(sampleRate))
	energy := make([]float64, len(bands))
	if err := s.BandEnergy(bands, energy); err != nil {
		return r, err
	}
	r.Bands = make(map[string]float64, len(bands))
	for i, b := range bands {
		r.Bands[b.Name] = energy[i]
	}
	return r, nil
}
