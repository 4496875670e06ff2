// SPDX-License-Identifier: MIT
package builtin

import (
	"math"

	"render/internal/buffer"
	"render/internal/midi"
	"render/internal/param"
	"render/internal/plugin"
)

const maxVoices = 16

// Synth parameter indices.
const (
	SynthWaveform = iota
	SynthAttack
	SynthDecay
	SynthSustain
	SynthRelease
	SynthVolume
	SynthDetune
)

var waveforms = []string{"sine", "saw", "square", "triangle"}

type voice struct {
	env      *adsr
	note     uint8
	velocity float64
	phase    float64
	age      int64
	held     bool
}

// Synth is a polyphonic subtractive-style instrument driven by MIDI notes.
// Input audio is ignored.
type Synth struct {
	sampleRate float64
	voices     [maxVoices]voice
	clock      int64

	waveform int
	volume   float64
	detune   float64 // cents
}

var _ plugin.Instance = (*Synth)(nil)

// NewSynth returns a synth at 44.1 kHz until Prepare is called.
func NewSynth() *Synth {
	s := &Synth{sampleRate: 44100, volume: 0.5}
	for i := range s.voices {
		s.voices[i].env = newADSR(s.sampleRate)
	}
	return s
}

// Parameters implements plugin.Instance.
func (s *Synth) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "waveform", Range: param.Range{Min: 0, Max: 3, Step: 1}, Automatable: true, Choices: waveforms},
		{Name: "attack", Label: "ms", Range: param.Range{Min: 1, Max: 5000, Skew: 0.3, Default: 5}, Automatable: true, Format: param.TimeFormatter},
		{Name: "decay", Label: "ms", Range: param.Range{Min: 1, Max: 5000, Skew: 0.3, Default: 100}, Automatable: true, Format: param.TimeFormatter},
		{Name: "sustain", Range: param.Range{Min: 0, Max: 1, Default: 0.7}, Automatable: true, Format: param.PercentFormatter},
		{Name: "release", Label: "ms", Range: param.Range{Min: 1, Max: 10000, Skew: 0.3, Default: 200}, Automatable: true, Format: param.TimeFormatter},
		{Name: "volume", Range: param.Range{Min: 0, Max: 1, Default: 0.5}, Automatable: true, Format: param.GainFormatter},
		{Name: "detune", Label: "cents", Range: param.Range{Min: -100, Max: 100}, Automatable: true},
	}
}

// SetParameter implements plugin.Instance.
func (s *Synth) SetParameter(index int, value float64) {
	env := s.voices[0].env
	a, d, su, r := env.attack, env.decay, env.sustain, env.release
	switch index {
	case SynthWaveform:
		s.waveform = int(value)
	case SynthAttack:
		a = value / 1000
	case SynthDecay:
		d = value / 1000
	case SynthSustain:
		su = value
	case SynthRelease:
		r = value / 1000
	case SynthVolume:
		s.volume = value
	case SynthDetune:
		s.detune = value
	default:
		return
	}
	for i := range s.voices {
		s.voices[i].env.set(a, d, su, r)
	}
}

// Prepare implements plugin.Instance.
func (s *Synth) Prepare(sampleRate, _ int) error {
	s.sampleRate = float64(sampleRate)
	for i := range s.voices {
		s.voices[i].env.setSampleRate(s.sampleRate)
	}
	return nil
}

// Reset silences every voice.
func (s *Synth) Reset() {
	for i := range s.voices {
		s.voices[i].env.reset()
		s.voices[i].held = false
		s.voices[i].phase = 0
	}
}

// Close implements plugin.Instance.
func (s *Synth) Close() error { return nil }

// ActiveVoices returns how many voices are sounding.
func (s *Synth) ActiveVoices() int {
	n := 0
	for i := range s.voices {
		if s.voices[i].env.active() {
			n++
		}
	}
	return n
}

func (s *Synth) noteOn(note, velocity uint8) {
	s.clock++
	// Free voice first, otherwise steal the oldest.
	idx := -1
	var oldest int64 = math.MaxInt64
	for i := range s.voices {
		v := &s.voices[i]
		if !v.env.active() {
			idx = i
			break
		}
		if v.age < oldest {
			oldest, idx = v.age, i
		}
	}
	v := &s.voices[idx]
	v.note = note
	v.velocity = float64(velocity) / 127
	v.phase = 0
	v.age = s.clock
	v.held = true
	v.env.reset()
	v.env.trigger()
}

// noteOff releases the oldest held voice playing note, so overlapping notes
// on one key end in the order they started.
func (s *Synth) noteOff(note uint8) {
	idx := -1
	for i := range s.voices {
		v := &s.voices[i]
		if v.held && v.note == note && (idx < 0 || v.age < s.voices[idx].age) {
			idx = i
		}
	}
	if idx < 0 {
		return
	}
	s.voices[idx].held = false
	s.voices[idx].env.releaseNote()
}

func (s *Synth) handle(ev midi.Event) {
	var ch, key, vel uint8
	switch {
	case ev.Message.GetNoteStart(&ch, &key, &vel):
		s.noteOn(key, vel)
	case ev.Message.GetNoteEnd(&ch, &key):
		s.noteOff(key)
	}
}

// Process implements plugin.Instance. Events must be sorted by offset.
func (s *Synth) Process(_, out *buffer.Buffer, events []midi.Event) error {
	out.Clear()
	left := out.Channel(0)
	right := out.Channel(min(1, out.Channels()-1))
	next := 0
	for i := range left {
		for next < len(events) && events[next].Offset <= i {
			s.handle(events[next])
			next++
		}
		var sum float64
		for vi := range s.voices {
			v := &s.voices[vi]
			if !v.env.active() {
				continue
			}
			freq := 440 * math.Pow(2, (float64(v.note)-69)/12+s.detune/1200)
			sum += s.osc(v.phase) * v.env.next() * v.velocity
			v.phase += freq / s.sampleRate
			v.phase -= math.Floor(v.phase)
		}
		sum *= s.volume
		left[i] = sum
		right[i] = sum
	}
	// Anything left over still updates voice state for the next block.
	for ; next < len(events); next++ {
		s.handle(events[next])
	}
	return nil
}

func (s *Synth) osc(phase float64) float64 {
	switch s.waveform {
	case 1:
		return 2*phase - 1
	case 2:
		if phase < 0.5 {
			return 1
		}
		return -1
	case 3:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
