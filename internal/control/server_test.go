// SPDX-License-Identifier: MIT
package control

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"render/internal/analysis"
	"render/internal/audio"
	"render/internal/graph"
	"render/internal/param"
	"render/internal/plugin/builtin"
)

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, h handler, args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("empty result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T", res.Content[0])
	}
	return text.Text, res.IsError
}

func newServer(t *testing.T) (*Server, *audio.Engine) {
	t.Helper()
	e, err := audio.NewEngine(48000, 256)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = e.Close() })
	synth, err := e.MakePluginProcessor("synth", "builtin:synth")
	if err != nil {
		t.Fatal(err)
	}
	osc, err := e.MakeOscillatorProcessor("osc", 440)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.LoadGraph([]graph.Node{{Processor: synth}, {Processor: osc}}); err != nil {
		t.Fatal(err)
	}
	return New(e, "test"), e
}

func TestListAndOrder(t *testing.T) {
	s, _ := newServer(t)

	out, isErr := call(t, s.listProcessors, nil)
	if isErr {
		t.Fatal(out)
	}
	var infos []ProcessorInfo
	if err := json.Unmarshal([]byte(out), &infos); err != nil {
		t.Fatal(err)
	}
	if len(infos) != 2 || infos[0].Name != "synth" || infos[0].Kind != "plugin" || infos[1].Parameters != 1 {
		t.Errorf("infos = %+v", infos)
	}

	out, _ = call(t, s.graphOrder, nil)
	if out != "synth -> osc (sinks: synth, osc)" {
		t.Errorf("order = %q", out)
	}
}

func TestDescribeAndSetParameter(t *testing.T) {
	s, e := newServer(t)

	out, isErr := call(t, s.describeParameters, map[string]any{"processor": "synth"})
	if isErr {
		t.Fatal(out)
	}
	var desc []param.Description
	if err := json.Unmarshal([]byte(out), &desc); err != nil {
		t.Fatal(err)
	}
	if len(desc) == 0 || desc[builtin.SynthVolume].Name != "volume" {
		t.Fatalf("desc = %+v", desc)
	}

	tests := []struct {
		name    string
		args    map[string]any
		wantErr bool
		want    float64
	}{
		{"by index", map[string]any{"processor": "synth", "index": float64(builtin.SynthVolume), "value": 0.25}, false, 0.25},
		{"by name clamps", map[string]any{"processor": "synth", "name": "volume", "value": 7.0}, false, 1},
		{"unknown name", map[string]any{"processor": "synth", "name": "wobble", "value": 1.0}, true, 1},
		{"bad index", map[string]any{"processor": "synth", "index": 99.0, "value": 1.0}, true, 1},
		{"missing value", map[string]any{"processor": "synth", "index": 0.0}, true, 1},
		{"unknown processor", map[string]any{"processor": "ghost", "index": 0.0, "value": 1.0}, true, 1},
		{"normalized", map[string]any{"processor": "synth", "name": "volume", "value": 0.75, "normalized": true}, false, 0.75},
	}
	synth, _ := e.Processor("synth")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, isErr := call(t, s.setParameter, tt.args)
			if isErr != tt.wantErr {
				t.Fatalf("isError = %v (%s)", isErr, out)
			}
			if v, _ := synth.Parameter(builtin.SynthVolume); v != tt.want {
				t.Errorf("volume = %v, want %v", v, tt.want)
			}
			if !tt.wantErr && !strings.Contains(out, "normalized") {
				t.Errorf("result %q does not report the normalized value", out)
			}
		})
	}
}

func TestPatchTools(t *testing.T) {
	s, e := newServer(t)

	out, isErr := call(t, s.setPatch, map[string]any{"processor": "osc", "patch-json": "[[0, 880]]"})
	if isErr {
		t.Fatal(out)
	}
	osc, _ := e.Processor("osc")
	if v, _ := osc.Parameter(0); v != 880 {
		t.Errorf("frequency = %v", v)
	}

	out, _ = call(t, s.getPatch, map[string]any{"processor": "osc"})
	if out != "[[0,880]]" {
		t.Errorf("patch = %q", out)
	}

	if _, isErr := call(t, s.setPatch, map[string]any{"processor": "osc", "patch-json": "{"}); !isErr {
		t.Error("malformed patch accepted")
	}
}

func TestNotesRenderAndExport(t *testing.T) {
	s, e := newServer(t)

	out, isErr := call(t, s.addNote, map[string]any{"processor": "synth", "note": 69.0, "velocity": 100.0, "start": 0.0, "duration": 0.1})
	if isErr || !strings.Contains(out, "A4") {
		t.Fatal(out)
	}
	if _, isErr := call(t, s.addNote, map[string]any{"processor": "synth", "note": 128.0, "velocity": 100.0, "start": 0.0, "duration": 0.1}); !isErr {
		t.Error("note 128 accepted")
	}

	out, isErr = call(t, s.render, map[string]any{"seconds": 0.5})
	if isErr {
		t.Fatal(out)
	}
	var res RenderResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Samples != 24000 || len(res.Peak) != 2 || res.Peak[0] <= 0 {
		t.Errorf("render result = %+v", res)
	}
	if math.Abs(res.Dominant-440) > 48000.0/analysis.DefaultSize {
		t.Errorf("dominant = %v", res.Dominant)
	}

	if _, isErr := call(t, s.render, map[string]any{"seconds": -1.0}); !isErr {
		t.Error("negative render accepted")
	}

	path := filepath.Join(t.TempDir(), "mcp.wav")
	out, isErr = call(t, s.exportWAV, map[string]any{"path": path})
	if isErr || !strings.Contains(out, "24000 frames") {
		t.Fatalf("export: %s", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}

	call(t, s.clearMidi, map[string]any{"processor": "synth"})
	synth, _ := e.Processor("synth")
	if synth.MidiNoteCount() != 0 {
		t.Error("clear-midi left notes")
	}
	call(t, s.clearAudio, nil)
	if e.Samples() != 0 {
		t.Error("clear-audio left output")
	}
}
