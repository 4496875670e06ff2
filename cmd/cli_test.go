// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"render/internal/audio"
	"render/internal/decode"
	"render/internal/param"
)

const testProject = `
engine:
  sample_rate: 8000
  block_size: 128
  duration_seconds: 0.25
processors:
  - name: tone
    kind: oscillator
    frequency: 440
  - name: level
    kind: plugin
    plugin: builtin:gain
graph:
  - name: tone
  - name: level
    inputs: [tone]
`

func writeProject(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "render.yaml")
	if err := os.WriteFile(path, []byte(testProject), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParamsCommand(t *testing.T) {
	path := writeProject(t)

	out, err := run(t, "params", "--project", path)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	for _, want := range []string{"tone (oscillator)", "frequency", "level (plugin)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestParamsCommandJSON(t *testing.T) {
	path := writeProject(t)

	out, err := run(t, "params", "tone", "--json", "--project", path)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	var got map[string][]param.Description
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	descs, ok := got["tone"]
	if !ok || len(descs) != 1 {
		t.Fatalf("got %+v, want one tone parameter", got)
	}
	if descs[0].Name != "frequency" {
		t.Errorf("parameter name = %q, want frequency", descs[0].Name)
	}
	if _, ok := got["level"]; ok {
		t.Error("unrequested processor listed")
	}
}

func TestParamsCommandUnknownProcessor(t *testing.T) {
	path := writeProject(t)

	_, err := run(t, "params", "missing", "--project", path)
	if !errors.Is(err, audio.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRenderCommand(t *testing.T) {
	path := writeProject(t)
	wavPath := filepath.Join(t.TempDir(), "out.wav")

	tests := []struct {
		name   string
		args   []string
		frames int
	}{
		{"project duration", nil, 2000},
		{"duration flag", []string{"--duration", "0.5"}, 4000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"render", "--project", path, "--output", wavPath}, tt.args...)
			out, err := run(t, args...)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if !strings.Contains(out, wavPath) {
				t.Errorf("output %q does not name %s", out, wavPath)
			}

			got, err := decode.File(wavPath)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Frames() != tt.frames {
				t.Errorf("frames = %d, want %d", got.Frames(), tt.frames)
			}
			if got.SampleRate != 8000 {
				t.Errorf("sample rate = %d, want 8000", got.SampleRate)
			}
		})
	}
}

func TestRenderCommandMissingProject(t *testing.T) {
	_, err := run(t, "render", "--project", filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing project file")
	}
}
