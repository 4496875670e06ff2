// SPDX-License-Identifier: MIT
package decode

import (
	"fmt"
	"io"

	"github.com/go-audio/wav"
)

// WAV decodes a PCM WAV stream of 8, 16, 24 or 32 bits.
func WAV(r io.ReadSeeker) (*Audio, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, ErrNotWAV
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, err
	}

	bitDepth := int(d.BitDepth)
	var scale float64
	switch bitDepth {
	case 8, 16, 24, 32:
		scale = 1 / float64(int64(1)<<(bitDepth-1))
	default:
		return nil, fmt.Errorf("%w: %d", ErrBitDepth, bitDepth)
	}

	channels := buf.Format.NumChannels
	if channels <= 0 || len(buf.Data) < channels {
		return nil, ErrEmpty
	}
	data := buf.Data
	if bitDepth == 8 {
		// 8-bit WAV is unsigned.
		data = make([]int, len(buf.Data))
		for i, v := range buf.Data {
			data[i] = v - 128
		}
	}
	planar, err := deinterleave(data, channels, scale)
	if err != nil {
		return nil, err
	}
	return &Audio{SampleRate: buf.Format.SampleRate, Channels: planar}, nil
}
