// SPDX-License-Identifier: MIT
/*
Package param holds a processor's automation parameters: their static
description, legal range, live value and display text.

Every processor kind exposes its parameters through a Store, so the value
policy is the same everywhere: values outside [Min, Max] are clamped,
quantized to Step when one is set, and NaN or Inf is rejected with
ErrValueRange.
*/
package param

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrIndex      = errors.New("parameter index out of range")
	ErrValueRange = errors.New("parameter value out of range")
	ErrSpec       = errors.New("invalid parameter spec")
)

// Range is the legal value envelope of one parameter.
type Range struct {
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Step    float64 `json:"step" yaml:"step"` // 0 means continuous
	Skew    float64 `json:"skew" yaml:"skew"` // 1 means linear
	Default float64 `json:"default" yaml:"default"`
}

// Discrete reports whether values snap to Step.
func (r Range) Discrete() bool { return r.Step > 0 }

// Clamp limits v to [Min, Max] and snaps it to the nearest step.
func (r Range) Clamp(v float64) float64 {
	v = math.Max(r.Min, math.Min(r.Max, v))
	if r.Step > 0 {
		v = r.Min + math.Round((v-r.Min)/r.Step)*r.Step
		v = math.Min(r.Max, v)
	}
	return v
}

// Normalize maps a plain value to [0, 1], applying the skew.
func (r Range) Normalize(v float64) float64 {
	if r.Max <= r.Min {
		return 0
	}
	n := (r.Clamp(v) - r.Min) / (r.Max - r.Min)
	if r.Skew > 0 && r.Skew != 1 {
		n = math.Pow(n, r.Skew)
	}
	return n
}

// Denormalize maps [0, 1] back to a plain value.
func (r Range) Denormalize(n float64) float64 {
	n = math.Max(0, math.Min(1, n))
	if r.Skew > 0 && r.Skew != 1 {
		n = math.Pow(n, 1/r.Skew)
	}
	return r.Clamp(r.Min + n*(r.Max-r.Min))
}

func (r Range) validate() error {
	for _, v := range []float64{r.Min, r.Max, r.Step, r.Default} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrSpec)
		}
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: min %g > max %g", ErrSpec, r.Min, r.Max)
	}
	if r.Step < 0 || r.Skew < 0 {
		return fmt.Errorf("%w: negative step or skew", ErrSpec)
	}
	if r.Default < r.Min || r.Default > r.Max {
		return fmt.Errorf("%w: default %g outside [%g, %g]", ErrSpec, r.Default, r.Min, r.Max)
	}
	return nil
}

// Spec declares one parameter. Specs are turned into indices in the order
// they are passed to NewStore.
type Spec struct {
	Name        string
	Label       string // unit shown after the value, e.g. "Hz"
	Range       Range
	Automatable bool
	Format      Formatter // optional; takes precedence over Choices
	Choices     []string  // display names for a discrete list starting at Min
}

// Description is the read-only record exposed to callers.
type Description struct {
	Index         int     `json:"index" yaml:"index"`
	Name          string  `json:"name" yaml:"name"`
	Label         string  `json:"label,omitempty" yaml:"label,omitempty"`
	IsAutomatable bool    `json:"isAutomatable" yaml:"isAutomatable"`
	DefaultValue  float64 `json:"defaultValue" yaml:"defaultValue"`
	Min           float64 `json:"min" yaml:"min"`
	Max           float64 `json:"max" yaml:"max"`
	Step          float64 `json:"step" yaml:"step"`
	IsDiscrete    bool    `json:"isDiscrete" yaml:"isDiscrete"`
	Text          string  `json:"text,omitempty" yaml:"text,omitempty"`
}
