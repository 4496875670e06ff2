// SPDX-License-Identifier: MIT
package analysis

// Band is a named frequency range, low inclusive and high exclusive.
type Band struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// DefaultBands splits the audible range the way mixing engineers usually
// talk about it. The top band ends at Nyquist.
func DefaultBands(sampleRate float64) []Band {
	return []Band{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: sampleRate / 2},
	}
}

// BandEnergy writes the mean squared magnitude of each band's bins into
// dst, which must hold len(bands) values. Bands with no bins report 0.
func (s *Spectrum) BandEnergy(bands []Band, dst []float64) error {
	if len(dst) != len(bands) {
		return ErrLength
	}
	for b, band := range bands {
		sum, n := 0.0, 0
		for i, m := range s.magnitude {
			f := s.FrequencyForBin(i)
			if f >= band.LowHz && f < band.HighHz {
				sum += m * m
				n++
			}
		}
		if n > 0 {
			sum /= float64(n)
		}
		dst[b] = sum
	}
	return nil
}
