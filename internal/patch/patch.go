// SPDX-License-Identifier: MIT
/*
Package patch snapshots and restores a processor's automatable parameter
state as an ordered list of (index, value) entries, and encodes that list
as JSON, YAML or a compact binary form.
*/
package patch

import (
	"encoding/json"
	"errors"
	"fmt"

	"render/internal/param"
)

var ErrFormat = errors.New("malformed patch")

// Target is anything with an indexed parameter table.
type Target interface {
	ParametersDescription() []param.Description
	Parameter(index int) (float64, error)
	SetParameter(index int, value float64) error
}

// Entry is one (index, value) pair. Its JSON form is a two element array.
type Entry struct {
	Index int     `yaml:"index"`
	Value float64 `yaml:"value"`
}

// Patch is an ordered list of entries. Later entries for the same index win
// when applied.
type Patch []Entry

// Capture reads every automatable parameter of t in index order. Values are
// read live, not from the descriptions' defaults.
func Capture(t Target) (Patch, error) {
	desc := t.ParametersDescription()
	p := make(Patch, 0, len(desc))
	for _, d := range desc {
		if !d.IsAutomatable {
			continue
		}
		v, err := t.Parameter(d.Index)
		if err != nil {
			return nil, fmt.Errorf("capture %q: %w", d.Name, err)
		}
		p = append(p, Entry{Index: d.Index, Value: v})
	}
	return p, nil
}

// Apply sets each entry in order through SetParameter and stops at the first
// error. Entries applied before the failure stay applied.
func Apply(t Target, p Patch) error {
	for i, e := range p {
		if err := t.SetParameter(e.Index, e.Value); err != nil {
			return fmt.Errorf("patch entry %d: %w", i, err)
		}
	}
	return nil
}

// MarshalJSON encodes the entry as [index, value].
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(e.Index), e.Value})
}

// UnmarshalJSON accepts [index, value].
func (e *Entry) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("%w: entry has %d elements, want 2", ErrFormat, len(pair))
	}
	if pair[0] != float64(int(pair[0])) || pair[0] < 0 {
		return fmt.Errorf("%w: index %v is not a non-negative integer", ErrFormat, pair[0])
	}
	e.Index = int(pair[0])
	e.Value = pair[1]
	return nil
}
