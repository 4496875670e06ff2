// SPDX-License-Identifier: MIT
package param

import (
	"fmt"
	"math"
	"strconv"
)

// Store is an indexed parameter table with live values. A Store is owned by
// one processor and is not safe for concurrent use.
type Store struct {
	specs  []Spec
	values []float64
	byName map[string]int
}

// NewStore validates specs and initializes every value to its default.
// Names must be non-empty and unique.
func NewStore(specs ...Spec) (*Store, error) {
	s := &Store{
		specs:  make([]Spec, len(specs)),
		values: make([]float64, len(specs)),
		byName: make(map[string]int, len(specs)),
	}
	for i, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: parameter %d has no name", ErrSpec, i)
		}
		if _, dup := s.byName[spec.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q", ErrSpec, spec.Name)
		}
		if spec.Range.Skew == 0 {
			spec.Range.Skew = 1
		}
		if err := spec.Range.validate(); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", spec.Name, err)
		}
		s.specs[i] = spec
		s.values[i] = spec.Range.Clamp(spec.Range.Default)
		s.byName[spec.Name] = i
	}
	return s, nil
}

// Len returns the number of parameters.
func (s *Store) Len() int { return len(s.specs) }

func (s *Store) check(index int) error {
	if index < 0 || index >= len(s.specs) {
		return fmt.Errorf("%w: %d (have %d)", ErrIndex, index, len(s.specs))
	}
	return nil
}

// Index looks a parameter up by name.
func (s *Store) Index(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// Describe returns one Description per parameter in index order. Text holds
// the current display value.
func (s *Store) Describe() []Description {
	out := make([]Description, len(s.specs))
	for i, spec := range s.specs {
		out[i] = Description{
			Index:         i,
			Name:          spec.Name,
			Label:         spec.Label,
			IsAutomatable: spec.Automatable,
			DefaultValue:  spec.Range.Clamp(spec.Range.Default),
			Min:           spec.Range.Min,
			Max:           spec.Range.Max,
			Step:          spec.Range.Step,
			IsDiscrete:    spec.Range.Discrete(),
			Text:          s.text(i),
		}
	}
	return out
}

// Range returns the legal envelope of parameter index.
func (s *Store) Range(index int) (Range, error) {
	if err := s.check(index); err != nil {
		return Range{}, err
	}
	return s.specs[index].Range, nil
}

// Name returns the name of parameter index.
func (s *Store) Name(index int) (string, error) {
	if err := s.check(index); err != nil {
		return "", err
	}
	return s.specs[index].Name, nil
}

// Value returns the current value of parameter index.
func (s *Store) Value(index int) (float64, error) {
	if err := s.check(index); err != nil {
		return 0, err
	}
	return s.values[index], nil
}

// Set clamps and quantizes v, stores it and returns the applied value.
func (s *Store) Set(index int, v float64) (float64, error) {
	if err := s.check(index); err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return s.values[index], fmt.Errorf("%w: %q = %v", ErrValueRange, s.specs[index].Name, v)
	}
	v = s.specs[index].Range.Clamp(v)
	s.values[index] = v
	return v, nil
}

// Text renders the current value of parameter index for display.
func (s *Store) Text(index int) (string, error) {
	if err := s.check(index); err != nil {
		return "", err
	}
	return s.text(index), nil
}

func (s *Store) text(i int) string {
	spec := s.specs[i]
	v := s.values[i]
	switch {
	case spec.Format != nil:
		return spec.Format(v)
	case len(spec.Choices) > 0:
		return ChoiceFormatter(spec.Range.Min, spec.Choices)(v)
	}
	var str string
	if spec.Range.Discrete() && spec.Range.Step == math.Trunc(spec.Range.Step) {
		str = strconv.FormatFloat(v, 'f', 0, 64)
	} else {
		str = strconv.FormatFloat(v, 'f', 2, 64)
	}
	if spec.Label != "" {
		return str + " " + spec.Label
	}
	return str
}

// Automatable returns the indices of automatable parameters in order.
func (s *Store) Automatable() []int {
	out := make([]int, 0, len(s.specs))
	for i, spec := range s.specs {
		if spec.Automatable {
			out = append(out, i)
		}
	}
	return out
}

// Reset restores every parameter to its default.
func (s *Store) Reset() {
	for i, spec := range s.specs {
		s.values[i] = spec.Range.Clamp(spec.Range.Default)
	}
}
