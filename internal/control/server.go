// SPDX-License-Identifier: MIT
/*
Package control exposes a render engine as an MCP server so an assistant
can inspect processors, change parameters, schedule notes and render.
Tools are registered under the "render_" prefix.
*/
package control

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"render/internal/analysis"
	"render/internal/audio"
	"render/internal/log"
	"render/internal/param"
	"render/internal/patch"
	"render/internal/processor"
)

var logger = log.For("mcp")

// Server binds an engine to an MCP server.
type Server struct {
	engine *audio.Engine
	mcp    *server.MCPServer
}

// ProcessorInfo is the listing entry for one processor.
type ProcessorInfo struct {
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	Parameters int    `json:"parameters"`
	Notes      int    `json:"notes"`
	Position   int64  `json:"position"`
}

// RenderResult is returned by the render tool.
type RenderResult struct {
	Samples    int       `json:"samples"`
	SampleRate int       `json:"sampleRate"`
	Peak       []float64 `json:"peak"`
	RMS        []float64 `json:"rms"`
	Dominant   float64   `json:"dominantHz"`
}

// New registers the engine tools on a fresh MCP server.
func New(e *audio.Engine, version string) *Server {
	s := &Server{
		engine: e,
		mcp: server.NewMCPServer(
			"Render MCP",
			version,
			server.WithToolCapabilities(false),
		),
	}
	s.register()
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// ServeStdio serves MCP over stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	logger.Infof("serving MCP on stdio")
	return server.ServeStdio(s.mcp)
}

func (s *Server) register() {
	processorArg := mcp.WithString("processor", mcp.Required(), mcp.Description("Name of the processor."))

	s.mcp.AddTool(mcp.NewTool("render_list-processors",
		mcp.WithDescription("Lists the engine's processors with their kind, parameter count and scheduled notes."),
	), s.listProcessors)

	s.mcp.AddTool(mcp.NewTool("render_graph-order",
		mcp.WithDescription("Returns the execution order of the loaded processing graph and the sinks summed into the output."),
	), s.graphOrder)

	s.mcp.AddTool(mcp.NewTool("render_describe-parameters",
		mcp.WithDescription("Describes every parameter of a processor: index, name, range, default and current text."),
		processorArg,
	), s.describeParameters)

	s.mcp.AddTool(mcp.NewTool("render_set-parameter",
		mcp.WithDescription("Sets a parameter by index or name. Values are clamped to the parameter range."),
		processorArg,
		mcp.WithNumber("index", mcp.Description("Parameter index. Ignored when name is given.")),
		mcp.WithString("name", mcp.Description("Parameter name.")),
		mcp.WithNumber("value", mcp.Required(), mcp.Description("New value in the parameter's own units, or in [0, 1] when normalized is set.")),
		mcp.WithBoolean("normalized", mcp.Description("Treat value as a normalized position within the parameter range.")),
	), s.setParameter)

	s.mcp.AddTool(mcp.NewTool("render_get-patch",
		mcp.WithDescription("Returns the processor's automatable parameters as a JSON patch [[index, value], ...]."),
		processorArg,
	), s.getPatch)

	s.mcp.AddTool(mcp.NewTool("render_set-patch",
		mcp.WithDescription("Applies a JSON patch [[index, value], ...] to a processor."),
		processorArg,
		mcp.WithString("patch-json", mcp.Required(), mcp.Description("The patch in JSON form.")),
	), s.setPatch)

	s.mcp.AddTool(mcp.NewTool("render_add-note",
		mcp.WithDescription("Schedules a MIDI note on a processor. Times are seconds on the processor's timeline."),
		processorArg,
		mcp.WithNumber("note", mcp.Required(), mcp.Description("MIDI note number (0-127).")),
		mcp.WithNumber("velocity", mcp.Required(), mcp.Description("Velocity (0-127).")),
		mcp.WithNumber("start", mcp.Required(), mcp.Description("Start time in seconds.")),
		mcp.WithNumber("duration", mcp.Required(), mcp.Description("Duration in seconds.")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("render_clear-midi",
		mcp.WithDescription("Removes every scheduled note from a processor."),
		processorArg,
	), s.clearMidi)

	s.mcp.AddTool(mcp.NewTool("render_render",
		mcp.WithDescription("Renders audio through the loaded graph and appends it to the output. Returns levels of the new audio."),
		mcp.WithNumber("seconds", mcp.Required(), mcp.Description("Length to render in seconds.")),
	), s.render)

	s.mcp.AddTool(mcp.NewTool("render_clear-audio",
		mcp.WithDescription("Drops the rendered output and rewinds every processor."),
	), s.clearAudio)

	s.mcp.AddTool(mcp.NewTool("render_export-wav",
		mcp.WithDescription("Writes the rendered output to a WAV file."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Destination file.")),
		mcp.WithNumber("bit_depth", mcp.Description("16, 24 or 32. Defaults to 16.")),
	), s.exportWAV)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listProcessors(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names := s.engine.ProcessorNames()
	infos := make([]ProcessorInfo, 0, len(names))
	for _, name := range names {
		_ = s.engine.WithProcessor(name, func(p *processor.Processor) error {
			infos = append(infos, ProcessorInfo{
				Name:       p.Name(),
				Kind:       p.Kind().String(),
				Parameters: p.ParameterCount(),
				Notes:      p.MidiNoteCount(),
				Position:   p.Position(),
			})
			return nil
		})
	}
	return jsonResult(infos)
}

func (s *Server) graphOrder(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	order := s.engine.Order()
	if order == nil {
		return mcp.NewToolResultText("No graph loaded."), nil
	}
	sinks := s.engine.Sinks()
	return mcp.NewToolResultText(fmt.Sprintf("%s (sinks: %s)", strings.Join(order, " -> "), strings.Join(sinks, ", "))), nil
}

func (s *Server) describeParameters(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("processor")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var desc []param.Description
	err = s.engine.WithProcessor(name, func(p *processor.Processor) error {
		desc = p.ParametersDescription()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(desc)
}

func (s *Server) setParameter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("processor")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	value, err := request.RequireFloat("value")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	paramName := request.GetString("name", "")
	index := request.GetInt("index", -1)
	normalized := request.GetBool("normalized", false)

	logger.Debugf("set %s param %q/%d = %v (normalized %t)", name, paramName, index, value, normalized)

	var text string
	err = s.engine.WithProcessor(name, func(p *processor.Processor) error {
		if paramName != "" {
			i, ok := p.ParameterIndex(paramName)
			if !ok {
				return fmt.Errorf("%w: no parameter %q", param.ErrIndex, paramName)
			}
			index = i
		}
		r, err := p.ParameterRange(index)
		if err != nil {
			return err
		}
		if normalized {
			value = r.Denormalize(value)
		}
		if err := p.SetParameter(index, value); err != nil {
			return err
		}
		pn, _ := p.ParameterName(index)
		t, _ := p.ParameterText(index)
		v, _ := p.Parameter(index)
		text = fmt.Sprintf("%s = %s (%.3f normalized)", pn, t, r.Normalize(v))
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) getPatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("processor")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var pt patch.Patch
	err = s.engine.WithProcessor(name, func(p *processor.Processor) error {
		pt, err = p.Patch()
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if pt == nil {
		pt = patch.Patch{}
	}
	data, err := json.Marshal(pt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal patch: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) setPatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("processor")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := request.RequireString("patch-json")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pt, err := patch.DecodeJSON(strings.NewReader(raw))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	err = s.engine.WithProcessor(name, func(p *processor.Processor) error {
		return p.SetPatch(pt)
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Applied %d parameter values.", len(pt))), nil
}

func (s *Server) addNote(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("processor")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := request.RequireInt("note")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	velocity, err := request.RequireInt("velocity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := request.RequireFloat("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	duration, err := request.RequireFloat("duration")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var count int
	err = s.engine.WithProcessor(name, func(p *processor.Processor) error {
		if err := p.AddMidiNote(note, velocity, start, duration); err != nil {
			return err
		}
		count = p.MidiNoteCount()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Scheduled %s on %s (%d notes).", param.NoteFormatter(float64(note)), name, count)), nil
}

func (s *Server) clearMidi(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("processor")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	err = s.engine.WithProcessor(name, func(p *processor.Processor) error {
		p.ClearMidi()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("MIDI cleared."), nil
}

func (s *Server) render(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seconds, err := request.RequireFloat("seconds")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	before := s.engine.Samples()
	if err := s.engine.Render(seconds); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := s.engine.Audio()
	for c := range out {
		out[c] = out[c][before:]
	}
	res, err := analysis.Analyze(out, s.engine.SampleRate())
	if err != nil {
		return nil, err
	}
	return jsonResult(RenderResult{
		Samples:    s.engine.Samples(),
		SampleRate: s.engine.SampleRate(),
		Peak:       res.Peak,
		RMS:        res.RMS,
		Dominant:   res.Dominant,
	})
}

func (s *Server) clearAudio(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.ClearAudio()
	return mcp.NewToolResultText("Output cleared."), nil
}

func (s *Server) exportWAV(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	depth := request.GetInt("bit_depth", 16)
	if err := s.engine.ExportFile(path, depth); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Wrote %d frames to %s.", s.engine.Samples(), path)), nil
}
