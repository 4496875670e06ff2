// SPDX-License-Identifier: MIT
/*
Package analysis measures rendered audio: per-channel levels, a magnitude
spectrum and the dominant frequency. It runs after a render, never inside
the block loop.
*/
package analysis

import (
	"errors"
	"fmt"
	"math/cmplx"
	"strings"

	"render/internal/log"
	"render/pkg/bitint"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

var logger = log.For("analysis")

var (
	ErrSize       = errors.New("fft size must be a power of 2")
	ErrSampleRate = errors.New("sample rate must be positive")
	ErrLength     = errors.New("destination length mismatch")
)

// WindowFunc selects the window applied before the transform.
type WindowFunc int

const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Spectrum computes magnitude spectra of a fixed size. It reuses its
// buffers and is not safe for concurrent use.
type Spectrum struct {
	fft        *fourier.FFT
	size       int
	sampleRate float64

	input     []float64
	coeffs    []complex128
	magnitude []float64
	window    []float64
}

// NewSpectrum returns an analyser for size-point transforms.
func NewSpectrum(size int, sampleRate float64, w WindowFunc) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("%w, got %d", ErrSize, size)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w, got %f", ErrSampleRate, sampleRate)
	}

	coeffs := make([]float64, size)
	applyWindow(coeffs, w)

	// A real transform yields N/2 + 1 bins.
	bins := size/2 + 1

	logger.Debugf("spectrum size %d at %.1f Hz", size, sampleRate)

	return &Spectrum{
		fft:        fourier.NewFFT(size),
		size:       size,
		sampleRate: sampleRate,
		input:      make([]float64, size),
		coeffs:     make([]complex128, bins),
		magnitude:  make([]float64, bins),
		window:     coeffs,
	}, nil
}

// Process windows samples, transforms them and stores the magnitudes.
// Input shorter than the transform size is zero padded; longer input is
// truncated.
func (s *Spectrum) Process(samples []float64) {
	n := len(samples)
	for i := range s.size {
		if i < n {
			s.input[i] = samples[i] * s.window[i]
		} else {
			s.input[i] = 0
		}
	}

	s.fft.Coefficients(s.coeffs, s.input)

	for i, c := range s.coeffs {
		s.magnitude[i] = cmplx.Abs(c)
	}
}

// Magnitudes returns a copy of the latest magnitudes.
func (s *Spectrum) Magnitudes() []float64 {
	out := make([]float64, len(s.magnitude))
	copy(out, s.magnitude)
	return out
}

// MagnitudesInto copies the latest magnitudes into dst, which must hold
// Size()/2+1 values.
func (s *Spectrum) MagnitudesInto(dst []float64) error {
	if len(dst) != len(s.magnitude) {
		return fmt.Errorf("%w: %d, want %d", ErrLength, len(dst), len(s.magnitude))
	}
	copy(dst, s.magnitude)
	return nil
}

// FrequencyForBin returns the centre frequency of bin i in Hz, or 0 when i
// is out of range.
func (s *Spectrum) FrequencyForBin(i int) float64 {
	if i < 0 || i >= len(s.magnitude) {
		return 0
	}
	return float64(i) * s.sampleRate / float64(s.size)
}

// Dominant returns the frequency of the strongest bin, ignoring DC.
func (s *Spectrum) Dominant() float64 {
	best, bestMag := 0, 0.0
	for i := 1; i < len(s.magnitude); i++ {
		if s.magnitude[i] > bestMag {
			best, bestMag = i, s.magnitude[i]
		}
	}
	return s.FrequencyForBin(best)
}

// Size returns the transform size.
func (s *Spectrum) Size() int { return s.size }

// SampleRate returns the sample rate the bins are scaled to.
func (s *Spectrum) SampleRate() float64 { return s.sampleRate }

// ParseWindowFunc converts a case-insensitive name to a WindowFunc. Unknown
// names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown window function %q", name)
	}
}

func applyWindow(coeffs []float64, w WindowFunc) {
	// gonum windows scale the slice in place.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch w {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		logger.Warnf("unknown window function %d, using Hann", w)
		window.Hann(coeffs)
	}
}
