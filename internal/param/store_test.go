// SPDX-License-Identifier: MIT
package param

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(
		Spec{Name: "frequency", Label: "Hz", Range: Range{Min: 20, Max: 20000, Default: 440}, Automatable: true, Format: FrequencyFormatter},
		Spec{Name: "voices", Range: Range{Min: 1, Max: 16, Step: 1, Default: 8}, Automatable: true},
		Spec{Name: "mode", Range: Range{Min: 0, Max: 2, Step: 1}, Choices: []string{"sine", "saw", "square"}},
		Spec{Name: "mix", Range: Range{Min: 0, Max: 1, Default: 0.5}, Automatable: true, Format: PercentFormatter},
	)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestDescribeIndicesAreContiguous(t *testing.T) {
	s := testStore(t)
	desc := s.Describe()
	if len(desc) != s.Len() {
		t.Fatalf("len(Describe()) = %d, want %d", len(desc), s.Len())
	}
	for i, d := range desc {
		if d.Index != i {
			t.Errorf("desc[%d].Index = %d", i, d.Index)
		}
	}
	if !desc[1].IsDiscrete || desc[0].IsDiscrete {
		t.Error("IsDiscrete should follow Step")
	}
	if desc[0].Text != "440.0 Hz" {
		t.Errorf("text = %q", desc[0].Text)
	}
}

func TestDescriptionJSONFieldNames(t *testing.T) {
	s := testStore(t)
	raw, err := json.Marshal(s.Describe()[0])
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"index", "name", "isAutomatable", "defaultValue"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing JSON field %q in %s", key, raw)
		}
	}
}

func TestSetClampsAndQuantizes(t *testing.T) {
	tests := []struct {
		name  string
		index int
		in    float64
		want  float64
	}{
		{"in range", 0, 1000, 1000},
		{"below min", 0, -5, 20},
		{"above max", 0, 1e9, 20000},
		{"snap down", 1, 3.4, 3},
		{"snap up", 1, 3.6, 4},
		{"snap above max", 1, 99, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore(t)
			applied, err := s.Set(tt.index, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			got, _ := s.Value(tt.index)
			if applied != tt.want || got != tt.want {
				t.Errorf("Set(%v) applied %v, stored %v; want %v", tt.in, applied, got, tt.want)
			}
		})
	}
}

func TestSetRejectsNonFinite(t *testing.T) {
	s := testStore(t)
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := s.Set(0, v); !errors.Is(err, ErrValueRange) {
			t.Errorf("Set(%v) error = %v, want ErrValueRange", v, err)
		}
	}
	if got, _ := s.Value(0); got != 440 {
		t.Errorf("rejected value changed state: %v", got)
	}
}

func TestIndexErrors(t *testing.T) {
	s := testStore(t)
	for _, i := range []int{-1, 4, 100} {
		if _, err := s.Value(i); !errors.Is(err, ErrIndex) {
			t.Errorf("Value(%d) error = %v", i, err)
		}
		if _, err := s.Set(i, 0); !errors.Is(err, ErrIndex) {
			t.Errorf("Set(%d) error = %v", i, err)
		}
		if _, err := s.Range(i); !errors.Is(err, ErrIndex) {
			t.Errorf("Range(%d) error = %v", i, err)
		}
		if _, err := s.Name(i); !errors.Is(err, ErrIndex) {
			t.Errorf("Name(%d) error = %v", i, err)
		}
		if _, err := s.Text(i); !errors.Is(err, ErrIndex) {
			t.Errorf("Text(%d) error = %v", i, err)
		}
	}
}

func TestTextRendering(t *testing.T) {
	s := testStore(t)
	_, _ = s.Set(2, 1)
	_, _ = s.Set(3, 0.25)

	tests := []struct {
		index int
		want  string
	}{
		{0, "440.0 Hz"},
		{1, "8"},
		{2, "saw"},
		{3, "25%"},
	}
	for _, tt := range tests {
		got, err := s.Text(tt.index)
		if err != nil || got != tt.want {
			t.Errorf("Text(%d) = %q, %v; want %q", tt.index, got, err, tt.want)
		}
	}
}

func TestNewStoreValidation(t *testing.T) {
	tests := []struct {
		name  string
		specs []Spec
	}{
		{"empty name", []Spec{{Range: Range{Max: 1}}}},
		{"duplicate", []Spec{{Name: "a", Range: Range{Max: 1}}, {Name: "a", Range: Range{Max: 1}}}},
		{"inverted", []Spec{{Name: "a", Range: Range{Min: 2, Max: 1, Default: 1.5}}}},
		{"default outside", []Spec{{Name: "a", Range: Range{Min: 0, Max: 1, Default: 2}}}},
		{"nan bound", []Spec{{Name: "a", Range: Range{Min: math.NaN(), Max: 1}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewStore(tt.specs...); !errors.Is(err, ErrSpec) {
				t.Errorf("expected ErrSpec, got %v", err)
			}
		})
	}
}

func TestAutomatableAndReset(t *testing.T) {
	s := testStore(t)
	got := s.Automatable()
	want := []int{0, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("Automatable() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Automatable() = %v, want %v", got, want)
		}
	}

	_, _ = s.Set(0, 100)
	s.Reset()
	if v, _ := s.Value(0); v != 440 {
		t.Errorf("Reset left frequency at %v", v)
	}
	if i, ok := s.Index("mix"); !ok || i != 3 {
		t.Errorf("Index(mix) = %d, %v", i, ok)
	}
}

func TestRangeNormalizeRoundTrip(t *testing.T) {
	r := Range{Min: 20, Max: 20000, Skew: 0.3}
	for _, v := range []float64{20, 100, 1000, 20000} {
		got := r.Denormalize(r.Normalize(v))
		if math.Abs(got-v) > 1e-6*v {
			t.Errorf("Denormalize(Normalize(%v)) = %v", v, got)
		}
	}
}

func TestClampIsIdempotent(t *testing.T) {
	r := Range{Min: -1, Max: 1, Step: 0.1}
	for v := -1.5; v <= 1.5; v += 0.037 {
		once := r.Clamp(v)
		if twice := r.Clamp(once); twice != once {
			t.Fatalf("Clamp not idempotent at %v: %v then %v", v, once, twice)
		}
	}
}
