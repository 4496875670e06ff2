// SPDX-License-Identifier: MIT
/*
Package buffer provides the sample containers used by the render path:
fixed-channel blocks routed between processors, a pool that recycles them
across graph reloads, and the append-only arena that holds rendered output.

Samples are float64 and stored non-interleaved, one slice per channel.
*/
package buffer

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
	"github.com/go-audio/audio"
)

var (
	ErrChannelMismatch = errors.New("channel count mismatch")
	ErrShape           = errors.New("invalid buffer shape")
)

// Buffer is a fixed channel count, variable length block of samples. Its
// length can change within the capacity it was allocated with.
type Buffer struct {
	data [][]float64
}

// New allocates a zeroed buffer with the given channel count and capacity.
// The initial length equals the capacity.
func New(channels, frames int) *Buffer {
	if channels < 1 {
		channels = 1
	}
	if frames < 0 {
		frames = 0
	}
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, frames)
	}
	return &Buffer{data: data}
}

// FromChannels copies non-interleaved channel data into a new Buffer. All
// channels must have the same length.
func FromChannels(channels [][]float64) (*Buffer, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrShape)
	}
	frames := len(channels[0])
	for ch, c := range channels {
		if len(c) != frames {
			return nil, fmt.Errorf("%w: channel %d has %d samples, expected %d", ErrShape, ch, len(c), frames)
		}
	}
	b := New(len(channels), frames)
	for ch, c := range channels {
		copy(b.data[ch], c)
	}
	return b, nil
}

// Channels returns the channel count.
func (b *Buffer) Channels() int { return len(b.data) }

// Len returns the number of frames currently in use.
func (b *Buffer) Len() int { return len(b.data[0]) }

// Cap returns the maximum number of frames the buffer can hold without
// reallocating.
func (b *Buffer) Cap() int { return cap(b.data[0]) }

// Channel returns the live sample slice for ch.
func (b *Buffer) Channel(ch int) []float64 { return b.data[ch] }

// SetLen changes the frame count. Growing past the capacity reallocates and
// preserves existing samples; newly exposed samples are zeroed.
func (b *Buffer) SetLen(frames int) {
	if frames < 0 {
		frames = 0
	}
	for ch, c := range b.data {
		old := len(c)
		if frames > cap(c) {
			grown := make([]float64, frames)
			copy(grown, c)
			b.data[ch] = grown
			continue
		}
		c = c[:frames]
		if frames > old {
			clear(c[old:])
		}
		b.data[ch] = c
	}
}

// Clear zeroes every sample in use.
func (b *Buffer) Clear() {
	for _, c := range b.data {
		clear(c)
	}
}

// Mix adds src into b sample by sample.
func (b *Buffer) Mix(src *Buffer) error {
	if err := b.sameShape(src); err != nil {
		return err
	}
	for ch, c := range src.data {
		vecmath.AddBlockInPlace(b.data[ch], c)
	}
	return nil
}

// MixDown adds src into b, folding channels when the counts differ: a mono
// source feeds every channel and extra source channels are dropped.
func (b *Buffer) MixDown(src *Buffer) {
	frames := min(b.Len(), src.Len())
	for ch := range b.data {
		sch := ch
		if sch >= len(src.data) {
			sch = len(src.data) - 1
		}
		vecmath.AddBlockInPlace(b.data[ch][:frames], src.data[sch][:frames])
	}
}

// Scale multiplies every sample by gain.
func (b *Buffer) Scale(gain float64) {
	for _, c := range b.data {
		vecmath.ScaleBlock(c, c, gain)
	}
}

// Finite reports whether the buffer holds no NaN or Inf samples.
func (b *Buffer) Finite() bool {
	for _, c := range b.data {
		for _, s := range c {
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return false
			}
		}
	}
	return true
}

func (b *Buffer) sameShape(other *Buffer) error {
	if len(b.data) != len(other.data) {
		return fmt.Errorf("%w: %d != %d", ErrChannelMismatch, len(b.data), len(other.data))
	}
	if b.Len() != other.Len() {
		return fmt.Errorf("%w: %d frames != %d frames", ErrShape, b.Len(), other.Len())
	}
	return nil
}

// FloatBuffer converts the block to an interleaved go-audio buffer.
func (b *Buffer) FloatBuffer(sampleRate int) *audio.FloatBuffer {
	channels := len(b.data)
	frames := b.Len()
	data := make([]float64, frames*channels)
	for ch, c := range b.data {
		for i, s := range c {
			data[i*channels+ch] = s
		}
	}
	return &audio.FloatBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   data,
	}
}

// FromFloatBuffer de-interleaves a go-audio buffer.
func FromFloatBuffer(fb *audio.FloatBuffer) (*Buffer, error) {
	if fb == nil || fb.Format == nil || fb.Format.NumChannels < 1 {
		return nil, fmt.Errorf("%w: missing format", ErrShape)
	}
	channels := fb.Format.NumChannels
	if len(fb.Data)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples not divisible by %d channels", ErrShape, len(fb.Data), channels)
	}
	b := New(channels, len(fb.Data)/channels)
	for i, s := range fb.Data {
		b.data[i%channels][i/channels] = s
	}
	return b, nil
}
