// SPDX-License-Identifier: MIT
package decode

import (
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
)

// MP3 decodes an MPEG-1/2 layer III stream. The decoder always yields
// 16-bit little-endian stereo.
func MP3(r io.Reader) (*Audio, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, err
	}
	if len(raw) < 4 {
		return nil, ErrEmpty
	}

	samples := make([]int, len(raw)/2)
	for i := range samples {
		samples[i] = int(int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8))
	}
	planar, err := deinterleave(samples, 2, 1.0/32768)
	if err != nil {
		return nil, err
	}
	return &Audio{SampleRate: dec.SampleRate(), Channels: planar}, nil
}
