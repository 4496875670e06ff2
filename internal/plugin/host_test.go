// SPDX-License-Identifier: MIT
package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"render/internal/buffer"
	"render/internal/midi"
	"render/internal/param"
)

type fakeInstance struct {
	closed   *int
	values   map[int]float64
	prepared int
	panicky  bool
	events   int
}

func (f *fakeInstance) Parameters() []param.Spec {
	return []param.Spec{
		{Name: "level", Range: param.Range{Min: 0, Max: 1, Default: 0.5}, Automatable: true, Format: param.PercentFormatter},
		{Name: "steps", Range: param.Range{Min: 0, Max: 4, Step: 1, Default: 1}, Automatable: true},
	}
}
func (f *fakeInstance) SetParameter(i int, v float64) { f.values[i] = v }
func (f *fakeInstance) Prepare(sr, _ int) error       { f.prepared = sr; return nil }
func (f *fakeInstance) Reset()                        {}
func (f *fakeInstance) Close() error                  { *f.closed++; return nil }
func (f *fakeInstance) Process(in, out *buffer.Buffer, events []midi.Event) error {
	if f.panicky {
		panic("boom")
	}
	f.events += len(events)
	out.Clear()
	out.MixDown(in)
	return nil
}

func newTestHost(closed *int) (*LocalHost, *[]*fakeInstance) {
	var made []*fakeInstance
	h := NewHost(map[string]Factory{
		"fake": func() (Instance, error) {
			f := &fakeInstance{closed: closed, values: map[int]float64{}}
			made = append(made, f)
			return f, nil
		},
		"broken": func() (Instance, error) { return nil, errors.New("no license") },
		"panics": func() (Instance, error) { panic("ctor") },
	})
	return h, &made
}

func TestLoadBuiltin(t *testing.T) {
	var closed int
	h, made := newTestHost(&closed)

	handle, err := h.Load("builtin:fake")
	if err != nil {
		t.Fatal(err)
	}
	if handle == 0 {
		t.Error("zero handle issued")
	}
	if h.Live() != 1 {
		t.Errorf("Live() = %d", h.Live())
	}
	inst := (*made)[0]
	if inst.values[0] != 0.5 || inst.values[1] != 1 {
		t.Errorf("defaults not pushed: %v", inst.values)
	}

	if err := h.Unload(handle); err != nil {
		t.Fatal(err)
	}
	if closed != 1 || h.Live() != 0 {
		t.Errorf("closed=%d live=%d after unload", closed, h.Live())
	}
	if err := h.Unload(handle); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("double unload error = %v", err)
	}
	if closed != 1 {
		t.Error("instance closed twice")
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	vst := filepath.Join(dir, "Synth.vst3")
	if err := os.MkdirAll(vst, 0o755); err != nil {
		t.Fatal(err)
	}
	junk := filepath.Join(dir, "junk.so")
	if err := os.WriteFile(junk, []byte("not an elf"), 0o644); err != nil {
		t.Fatal(err)
	}
	txt := filepath.Join(dir, "notes.txt")
	_ = os.WriteFile(txt, []byte("x"), 0o644)

	tests := []struct {
		name string
		id   string
	}{
		{"unknown builtin", "builtin:nope"},
		{"factory error", "builtin:broken"},
		{"factory panic", "builtin:panics"},
		{"empty", ""},
		{"missing file", filepath.Join(dir, "missing.vst3")},
		{"directory", dir},
		{"vst3 bundle", vst},
		{"bad shared object", junk},
		{"unknown extension", txt},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var closed int
			h, _ := newTestHost(&closed)
			_, err := h.Load(tt.id)
			if !errors.Is(err, ErrPluginLoad) {
				t.Fatalf("expected ErrPluginLoad, got %v", err)
			}
			var le *LoadError
			if !errors.As(err, &le) {
				t.Errorf("expected *LoadError, got %T", err)
			}
			if h.Live() != 0 {
				t.Errorf("failed load left %d live instances", h.Live())
			}
		})
	}
}

func TestLoadGoPluginSymbol(t *testing.T) {
	dir := t.TempDir()
	so := filepath.Join(dir, "ext.so")
	_ = os.WriteFile(so, []byte{0}, 0o644)

	var closed int
	h, _ := newTestHost(&closed)
	h.openSO = func(path string) (Factory, error) {
		if path != so {
			t.Errorf("openSO(%q)", path)
		}
		return func() (Instance, error) {
			return &fakeInstance{closed: &closed, values: map[int]float64{}}, nil
		}, nil
	}

	handle, err := h.Load(so)
	if err != nil {
		t.Fatal(err)
	}
	_ = h.Unload(handle)
	if closed != 1 {
		t.Errorf("closed = %d", closed)
	}
}

func TestParameterAccess(t *testing.T) {
	var closed int
	h, made := newTestHost(&closed)
	handle, _ := h.Load("builtin:fake")

	if err := h.SetParameter(handle, 1, 2.6); err != nil {
		t.Fatal(err)
	}
	if v, _ := h.Parameter(handle, 1); v != 3 {
		t.Errorf("Parameter = %v, want 3", v)
	}
	if (*made)[0].values[1] != 3 {
		t.Errorf("instance saw %v, want clamped 3", (*made)[0].values[1])
	}
	if err := h.SetParameter(handle, 0, 7); err != nil {
		t.Fatal(err)
	}
	if txt, _ := h.ParameterText(handle, 0); txt != "100%" {
		t.Errorf("text = %q", txt)
	}
	if name, _ := h.ParameterName(handle, 1); name != "steps" {
		t.Errorf("name = %q", name)
	}
	if r, _ := h.Range(handle, 1); r.Max != 4 || r.Step != 1 {
		t.Errorf("range = %+v", r)
	}
	if d, _ := h.Describe(handle); len(d) != 2 || d[1].Index != 1 {
		t.Errorf("describe = %+v", d)
	}

	if _, err := h.Parameter(handle, 5); !errors.Is(err, param.ErrIndex) {
		t.Errorf("expected ErrIndex, got %v", err)
	}
	if _, err := h.Parameter(Handle(999), 0); !errors.Is(err, ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle, got %v", err)
	}
}

func TestProcessRecoversPanics(t *testing.T) {
	var closed int
	h, made := newTestHost(&closed)
	handle, _ := h.Load("builtin:fake")
	if err := h.Prepare(handle, 48000, 64); err != nil {
		t.Fatal(err)
	}
	if (*made)[0].prepared != 48000 {
		t.Error("Prepare not forwarded")
	}

	in, out := buffer.New(2, 64), buffer.New(2, 64)
	in.Channel(0)[3] = 0.25
	events := []midi.Event{{Offset: 1}}
	if err := h.Process(handle, in, out, events); err != nil {
		t.Fatal(err)
	}
	if out.Channel(0)[3] != 0.25 || (*made)[0].events != 1 {
		t.Error("Process not forwarded")
	}

	(*made)[0].panicky = true
	if err := h.Process(handle, in, out, nil); !errors.Is(err, ErrFault) {
		t.Errorf("expected ErrFault, got %v", err)
	}
}

func TestBuiltinsListing(t *testing.T) {
	var closed int
	h, _ := newTestHost(&closed)
	h.Register("extra", nil)
	got := h.Builtins()
	want := []string{"builtin:broken", "builtin:extra", "builtin:fake", "builtin:panics"}
	if len(got) != len(want) {
		t.Fatalf("Builtins() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Builtins()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
