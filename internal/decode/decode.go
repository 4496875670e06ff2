// SPDX-License-Identifier: MIT
/*
Package decode reads audio files into planar float64 channels for playback
processors. WAV, MP3 and Ogg Vorbis are supported; the format is chosen by
file extension.
*/
package decode

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/resample"
	goaudio "github.com/go-audio/audio"

	"render/internal/buffer"
	"render/internal/log"
)

var logger = log.For("decode")

var (
	ErrUnsupported = errors.New("unsupported audio format")
	ErrNotWAV      = errors.New("not a WAV file")
	ErrBitDepth    = errors.New("unsupported bit depth")
	ErrEmpty       = errors.New("no audio data")
)

// Audio is decoded, planar audio with samples in [-1, 1].
type Audio struct {
	SampleRate int
	Channels   [][]float64
}

// Frames returns the number of samples per channel.
func (a *Audio) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Duration returns the length in seconds.
func (a *Audio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.Frames()) / float64(a.SampleRate)
}

// File decodes the file at path, choosing the decoder by extension.
func File(path string) (*Audio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var a *Audio
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav", ".wave":
		a, err = WAV(f)
	case ".mp3":
		a, err = MP3(f)
	case ".ogg", ".oga":
		a, err = Vorbis(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	logger.Debugf("decoded %s: %d channels, %d frames at %d Hz", path, len(a.Channels), a.Frames(), a.SampleRate)
	return a, nil
}

// deinterleave splits interleaved samples into channels, scaling each by
// scale. A trailing partial frame is dropped.
func deinterleave[T int | float32](data []T, channels int, scale float64) ([][]float64, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupported, channels)
	}
	data = data[:len(data)-len(data)%channels]
	fb := &goaudio.FloatBuffer{
		Format: &goaudio.Format{NumChannels: channels},
		Data:   make([]float64, len(data)),
	}
	for i, v := range data {
		fb.Data[i] = float64(v) * scale
	}
	b, err := buffer.FromFloatBuffer(fb)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, channels)
	for c := range out {
		out[c] = b.Channel(c)
	}
	return out, nil
}

// Resample converts a to rate with a polyphase FIR resampler. It returns a
// unchanged when the rates already match. The filter delay is removed, so
// the result lines up with the input and holds round(frames*rate/inRate)
// frames.
func Resample(a *Audio, rate int) (*Audio, error) {
	if a.SampleRate == rate {
		return a, nil
	}
	r, err := resample.NewForRates(float64(a.SampleRate), float64(rate))
	if err != nil {
		return nil, fmt.Errorf("resample %d Hz to %d Hz: %w", a.SampleRate, rate, err)
	}
	up, down := r.Ratio()
	latency := int(math.Round(float64(up*r.TapsPerPhase()-1) / float64(2*down)))
	tail := make([]float64, r.TapsPerPhase()+1)

	frames := int(math.Round(float64(a.Frames()) * float64(rate) / float64(a.SampleRate)))
	out := &Audio{SampleRate: rate, Channels: make([][]float64, len(a.Channels))}
	for c, src := range a.Channels {
		r.Reset()
		y := r.Process(src)
		y = append(y, r.Process(tail)...)
		dst := make([]float64, frames)
		if latency < len(y) {
			copy(dst, y[latency:])
		}
		out.Channels[c] = dst
	}
	return out, nil
}
