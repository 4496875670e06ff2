// SPDX-License-Identifier: MIT
package decode

import (
	"io"

	"github.com/jfreymuth/oggvorbis"
)

// Vorbis decodes an Ogg Vorbis stream.
func Vorbis(r io.Reader) (*Audio, error) {
	data, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if format.Channels <= 0 || len(data) < format.Channels {
		return nil, ErrEmpty
	}
	planar, err := deinterleave(data, format.Channels, 1)
	if err != nil {
		return nil, err
	}
	return &Audio{SampleRate: format.SampleRate, Channels: planar}, nil
}
