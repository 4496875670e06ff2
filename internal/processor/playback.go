// SPDX-License-Identifier: MIT
package processor

import (
	"render/internal/buffer"
	"render/internal/param"
)

type playback struct {
	data   *buffer.Buffer
	cursor int
}

// NewPlayback returns a processor that plays data once and then emits
// silence. data is copied; mono is duplicated to both outputs and channels
// beyond the second are ignored. Inputs are ignored.
func NewPlayback(name string, f Format, data [][]float64) (*Processor, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	src, err := buffer.FromChannels(data)
	if err != nil {
		return nil, err
	}
	folded := buffer.New(Channels, src.Len())
	folded.MixDown(src)

	store, _ := param.NewStore()
	return newProcessor(name, KindPlayback, f, store, &playback{data: folded}), nil
}

func (pb *playback) process(_ *Processor, _ []*buffer.Buffer, out *buffer.Buffer) error {
	n := out.Len()
	remaining := max(0, pb.data.Len()-pb.cursor)
	take := min(n, remaining)
	for ch := range out.Channels() {
		dst := out.Channel(ch)
		copy(dst, pb.data.Channel(ch)[pb.cursor:pb.cursor+take])
		clear(dst[take:])
	}
	pb.cursor += take
	return nil
}

func (pb *playback) reset() { pb.cursor = 0 }

func (pb *playback) close() error {
	pb.data = nil
	return nil
}
