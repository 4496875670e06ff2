// SPDX-License-Identifier: MIT
package param

import (
	"math"
	"strconv"
)

// Formatter renders a plain parameter value for display.
type Formatter func(float64) string

// unit is one rung of a display ladder: values at or above from are
// multiplied by mul and printed with prec decimals.
type unit struct {
	from   float64
	mul    float64
	prec   int
	suffix string
}

// Rungs are ascending by from; the first rung also catches anything below it.
var (
	frequencyUnits = []unit{{0, 1, 1, " Hz"}, {1000, 1e-3, 2, " kHz"}}
	timeUnits      = []unit{{0, 1e3, 0, " us"}, {1, 1, 1, " ms"}, {1000, 1e-3, 2, " s"}}
)

func climb(v float64, rungs []unit) string {
	u := rungs[0]
	for _, r := range rungs[1:] {
		if v >= r.from {
			u = r
		}
	}
	return strconv.FormatFloat(v*u.mul, 'f', u.prec, 64) + u.suffix
}

// silenceDB is the level shown as -inf.
const silenceDB = -60

// FrequencyFormatter shows Hz, switching to kHz from 1 kHz.
func FrequencyFormatter(hz float64) string { return climb(hz, frequencyUnits) }

// TimeFormatter shows a millisecond value in us, ms or s.
func TimeFormatter(ms float64) string { return climb(ms, timeUnits) }

// DecibelFormatter shows dB with one decimal; silenceDB and below read -inf.
func DecibelFormatter(db float64) string {
	if db <= silenceDB {
		return "-inf dB"
	}
	return strconv.FormatFloat(db, 'f', 1, 64) + " dB"
}

// GainFormatter shows a linear gain in dB.
func GainFormatter(gain float64) string {
	if gain <= 0 {
		return DecibelFormatter(math.Inf(-1))
	}
	return DecibelFormatter(20 * math.Log10(gain))
}

// PercentFormatter shows a 0..1 value as a whole percentage.
func PercentFormatter(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 0, 64) + "%"
}

// PanFormatter shows -1..1 as "C" or a percentage with an L/R side.
func PanFormatter(pan float64) string {
	side := "R"
	if pan < 0 {
		side = "L"
	}
	if math.Abs(pan) < 0.01 {
		return "C"
	}
	return strconv.FormatFloat(math.Abs(pan)*100, 'f', 0, 64) + side
}

var pitchClasses = [...]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteFormatter names a MIDI note with scientific pitch, so 60 is C4.
// Numbers outside 0..127 are printed as they are.
func NoteFormatter(note float64) string {
	n := int(math.Round(note))
	if n < 0 || n > 127 {
		return strconv.Itoa(n)
	}
	return pitchClasses[n%12] + strconv.Itoa(n/12-1)
}

// OnOffFormatter shows a switch.
func OnOffFormatter(v float64) string {
	if v < 0.5 {
		return "Off"
	}
	return "On"
}

// ChoiceFormatter maps a stepped value counted from base onto names. Values
// with no name print as integers.
func ChoiceFormatter(base float64, choices []string) Formatter {
	return func(v float64) string {
		if i := int(math.Round(v - base)); i >= 0 && i < len(choices) {
			return choices[i]
		}
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
}
