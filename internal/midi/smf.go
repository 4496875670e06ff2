// SPDX-License-Identifier: MIT
package midi

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ReadSMF extracts the notes of every track of a standard MIDI file.
// Notes still held at the end of the file are closed at the last event.
func ReadSMF(r io.Reader) ([]Note, error) {
	type key struct{ ch, key uint8 }
	type held struct {
		start float64
		vel   uint8
	}

	var (
		notes []Note
		open  = map[key][]held{}
		last  float64
	)
	err := smf.ReadTracksFrom(r).Do(func(te smf.TrackEvent) {
		at := float64(te.AbsMicroSeconds) / 1e6
		last = max(last, at)

		msg := gomidi.Message(te.Message)
		var ch, k, vel uint8
		switch {
		case msg.GetNoteStart(&ch, &k, &vel):
			open[key{ch, k}] = append(open[key{ch, k}], held{start: at, vel: vel})
		case msg.GetNoteEnd(&ch, &k):
			stack := open[key{ch, k}]
			if len(stack) == 0 {
				return
			}
			h := stack[0]
			open[key{ch, k}] = stack[1:]
			notes = append(notes, Note{Key: k, Velocity: h.vel, Channel: ch, Start: h.start, Duration: at - h.start})
		}
	}).Error()
	if err != nil {
		return nil, fmt.Errorf("read smf: %w", err)
	}

	for k, stack := range open {
		for _, h := range stack {
			notes = append(notes, Note{Key: k.key, Velocity: h.vel, Channel: k.ch, Start: h.start, Duration: last - h.start})
		}
	}
	slices.SortStableFunc(notes, func(a, b Note) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return notes, nil
}

// LoadSMF reads path and schedules its notes. With clearPrevious the
// existing notes are dropped first.
func (s *Scheduler) LoadSMF(path string, clearPrevious bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	notes, err := ReadSMF(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if clearPrevious {
		s.Clear()
	}
	for _, n := range notes {
		s.Add(n)
	}
	return len(notes), nil
}
