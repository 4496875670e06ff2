// SPDX-License-Identifier: MIT
/*
Package midi schedules timed notes for one processor and hands them out as
sample-accurate MIDI messages, block by block.

Notes are stored in seconds and converted to sample positions with the
owner's sample rate. Positions are relative to the owning processor's own
timeline, which starts at zero when the processor is created or reset.
*/
package midi

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	gomidi "gitlab.com/gomidi/midi/v2"
)

var ErrInvalidNote = errors.New("invalid midi note")

// Note is one scheduled note.
type Note struct {
	Key      uint8
	Velocity uint8
	Channel  uint8
	Start    float64 // seconds
	Duration float64 // seconds
}

// Event is a MIDI message positioned inside a block.
type Event struct {
	Offset  int // sample offset from the block start
	Message gomidi.Message
}

type timed struct {
	pos int64
	off bool
	seq int
	msg gomidi.Message
}

// Scheduler holds the notes of one processor. It is not safe for concurrent
// use.
type Scheduler struct {
	sampleRate int
	notes      []Note
	events     []timed
	dirty      bool
}

// NewScheduler returns an empty scheduler for the given sample rate.
func NewScheduler(sampleRate int) *Scheduler {
	return &Scheduler{sampleRate: sampleRate}
}

// ValidateNote checks note and velocity are within 0..127 and the times are
// finite and non-negative.
func ValidateNote(note, velocity int, start, duration float64) error {
	switch {
	case note < 0 || note > 127:
		return fmt.Errorf("%w: note %d outside 0..127", ErrInvalidNote, note)
	case velocity < 0 || velocity > 127:
		return fmt.Errorf("%w: velocity %d outside 0..127", ErrInvalidNote, velocity)
	case math.IsNaN(start) || math.IsInf(start, 0) || start < 0:
		return fmt.Errorf("%w: start %v", ErrInvalidNote, start)
	case math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0:
		return fmt.Errorf("%w: duration %v", ErrInvalidNote, duration)
	}
	return nil
}

// AddNote schedules a note on channel 0.
func (s *Scheduler) AddNote(note, velocity int, start, duration float64) error {
	if err := ValidateNote(note, velocity, start, duration); err != nil {
		return err
	}
	s.Add(Note{Key: uint8(note), Velocity: uint8(velocity), Start: start, Duration: duration})
	return nil
}

// Add schedules a note that has already been validated.
func (s *Scheduler) Add(n Note) {
	s.notes = append(s.notes, n)
	s.dirty = true
}

// Len returns the number of scheduled notes.
func (s *Scheduler) Len() int { return len(s.notes) }

// Notes returns a copy of the scheduled notes in insertion order.
func (s *Scheduler) Notes() []Note { return slices.Clone(s.notes) }

// Clear drops every scheduled note.
func (s *Scheduler) Clear() {
	s.notes = s.notes[:0]
	s.events = s.events[:0]
	s.dirty = false
}

func (s *Scheduler) toSamples(sec float64) int64 {
	return int64(math.Round(sec * float64(s.sampleRate)))
}

func (s *Scheduler) compile() {
	s.events = s.events[:0]
	for i, n := range s.notes {
		on := s.toSamples(n.Start)
		// A zero length note still sounds for one sample so its note-off
		// cannot sort ahead of its note-on.
		off := max(s.toSamples(n.Start+n.Duration), on+1)
		s.events = append(s.events,
			timed{pos: on, seq: i, msg: gomidi.NoteOn(n.Channel, n.Key, n.Velocity)},
			timed{pos: off, off: true, seq: i, msg: gomidi.NoteOff(n.Channel, n.Key)},
		)
	}
	slices.SortStableFunc(s.events, func(a, b timed) int {
		if c := cmp.Compare(a.pos, b.pos); c != 0 {
			return c
		}
		if a.off != b.off {
			if a.off {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.seq, b.seq)
	})
	s.dirty = false
}

// EventsInRange appends to dst every event with a position in [start, end)
// and returns the extended slice. Offsets are relative to start. At equal
// positions note-offs come before note-ons.
func (s *Scheduler) EventsInRange(dst []Event, start, end int64) []Event {
	if s.dirty {
		s.compile()
	}
	i, _ := slices.BinarySearchFunc(s.events, start, func(e timed, pos int64) int {
		return cmp.Compare(e.pos, pos)
	})
	for ; i < len(s.events) && s.events[i].pos < end; i++ {
		dst = append(dst, Event{Offset: int(s.events[i].pos - start), Message: s.events[i].msg})
	}
	return dst
}
