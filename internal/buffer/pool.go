// SPDX-License-Identifier: MIT
package buffer

// Pool recycles routing buffers of one channel count. It is not safe for
// concurrent use; the engine serializes access.
type Pool struct {
	channels int
	frames   int
	free     []*Buffer
	live     int
}

// NewPool returns a pool handing out buffers with the given channel count and
// a capacity of frames samples.
func NewPool(channels, frames int) *Pool {
	return &Pool{channels: channels, frames: frames}
}

// Get returns a zeroed buffer with Len equal to the pool's frame size.
func (p *Pool) Get() *Buffer {
	p.live++
	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		b.SetLen(p.frames)
		b.Clear()
		return b
	}
	return New(p.channels, p.frames)
}

// Put returns b to the pool. Buffers of the wrong shape are dropped.
func (p *Pool) Put(b *Buffer) {
	if b == nil {
		return
	}
	p.live--
	if b.Channels() != p.channels || b.Cap() < p.frames {
		return
	}
	p.free = append(p.free, b)
}

// Live returns how many buffers are checked out.
func (p *Pool) Live() int { return p.live }

// idle returns how many buffers are waiting for reuse.
func (p *Pool) idle() int { return len(p.free) }
