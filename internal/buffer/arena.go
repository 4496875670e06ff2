// SPDX-License-Identifier: MIT
package buffer

import (
	"fmt"

	"render/pkg/bitint"
)

// Arena is an append-only multichannel sample store. Capacity grows
// geometrically so repeated appends reallocate O(log n) times.
type Arena struct {
	data [][]float64
}

// NewArena creates an empty arena with the given channel count.
func NewArena(channels int) *Arena {
	if channels < 1 {
		channels = 1
	}
	return &Arena{data: make([][]float64, channels)}
}

// Channels returns the channel count.
func (a *Arena) Channels() int { return len(a.data) }

// Len returns the number of frames appended so far.
func (a *Arena) Len() int { return len(a.data[0]) }

// Cap returns the number of frames that fit before the next reallocation.
func (a *Arena) Cap() int { return cap(a.data[0]) }

// Append copies the used frames of b onto the end of the arena.
func (a *Arena) Append(b *Buffer) error {
	if b.Channels() != len(a.data) {
		return fmt.Errorf("%w: arena has %d channels, block has %d", ErrChannelMismatch, len(a.data), b.Channels())
	}
	a.reserve(b.Len())
	for ch, c := range a.data {
		a.data[ch] = append(c, b.Channel(ch)...)
	}
	return nil
}

// AppendSilence extends every channel by frames zero samples.
func (a *Arena) AppendSilence(frames int) {
	if frames <= 0 {
		return
	}
	a.reserve(frames)
	for ch, c := range a.data {
		n := len(c)
		c = c[:n+frames]
		clear(c[n:])
		a.data[ch] = c
	}
}

func (a *Arena) reserve(frames int) {
	n := a.Len()
	want := bitint.GrowCapacity(a.Cap(), n+frames)
	if want == a.Cap() {
		return
	}
	for ch, c := range a.data {
		grown := make([]float64, n, want)
		copy(grown, c)
		a.data[ch] = grown
	}
}

// Snapshot returns a copy of the stored samples, shape (channels, Len).
func (a *Arena) Snapshot() [][]float64 {
	out := make([][]float64, len(a.data))
	for ch, c := range a.data {
		out[ch] = append([]float64(nil), c...)
	}
	return out
}

// View returns the live channel slices. Callers must not retain them across
// appends.
func (a *Arena) View() [][]float64 { return a.data }

// Reset drops all samples. Capacity is released as well so a long session
// that is cleared does not pin its peak allocation.
func (a *Arena) Reset() {
	for ch := range a.data {
		a.data[ch] = nil
	}
}

// Truncate drops every frame past frames. Capacity is kept.
func (a *Arena) Truncate(frames int) {
	if frames < 0 {
		frames = 0
	}
	for ch, c := range a.data {
		if frames < len(c) {
			a.data[ch] = c[:frames]
		}
	}
}
