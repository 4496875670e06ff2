// SPDX-License-Identifier: MIT
package builtin

import "math"

type stage int

const (
	stageIdle stage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

// adsr is an exponential attack-decay-sustain-release envelope.
type adsr struct {
	sampleRate float64

	attack, decay, sustain, release float64 // seconds, level 0-1 for sustain

	attackCoef, decayCoef, releaseCoef float64

	stage stage
	value float64
}

func newADSR(sampleRate float64) *adsr {
	e := &adsr{sampleRate: sampleRate, attack: 0.005, decay: 0.1, sustain: 0.7, release: 0.2}
	e.update()
	return e
}

func coef(seconds, sampleRate float64) float64 {
	if seconds <= 0 || sampleRate <= 0 {
		return 0
	}
	return math.Exp(-1 / (seconds * sampleRate))
}

func (e *adsr) update() {
	e.attackCoef = coef(e.attack, e.sampleRate)
	e.decayCoef = coef(e.decay, e.sampleRate)
	e.releaseCoef = coef(e.release, e.sampleRate)
}

func (e *adsr) set(attack, decay, sustain, release float64) {
	e.attack = math.Max(0.001, attack)
	e.decay = math.Max(0.001, decay)
	e.sustain = math.Max(0, math.Min(1, sustain))
	e.release = math.Max(0.001, release)
	e.update()
}

func (e *adsr) setSampleRate(sr float64) {
	e.sampleRate = sr
	e.update()
}

func (e *adsr) trigger() { e.stage = stageAttack }

func (e *adsr) releaseNote() {
	if e.stage != stageIdle {
		e.stage = stageRelease
	}
}

func (e *adsr) reset() {
	e.stage = stageIdle
	e.value = 0
}

func (e *adsr) active() bool { return e.stage != stageIdle }

func (e *adsr) next() float64 {
	switch e.stage {
	case stageAttack:
		// Aim past 1 so the curve reaches full level in finite time.
		e.value = 1.2 + (e.value-1.2)*e.attackCoef
		if e.value >= 1 {
			e.value = 1
			e.stage = stageDecay
		}
	case stageDecay:
		e.value = e.sustain + (e.value-e.sustain)*e.decayCoef
		if e.value <= e.sustain+0.001 {
			e.value = e.sustain
			e.stage = stageSustain
		}
	case stageSustain:
		e.value = e.sustain
	case stageRelease:
		e.value *= e.releaseCoef
		if e.value <= 0.0001 {
			e.value = 0
			e.stage = stageIdle
		}
	default:
		e.value = 0
	}
	return e.value
}
