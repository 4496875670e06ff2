// SPDX-License-Identifier: MIT
/*
Package project turns a render project file into a ready engine: it creates
the declared processors, applies their parameters, patches and notes, and
loads the graph.
*/
package project

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"render/internal/audio"
	"render/internal/config"
	"render/internal/decode"
	"render/internal/graph"
	"render/internal/log"
	"render/internal/patch"
	"render/internal/plugin"
	"render/internal/processor"
)

var logger = log.For("project")

var ErrUnknownParameter = errors.New("unknown parameter")

// Project is a loaded configuration plus the directory relative paths in it
// are resolved against.
type Project struct {
	Config *config.Config
	Dir    string
}

// Load reads the project file at path.
func Load(path string) (*Project, error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	dir := "."
	if path != "" {
		dir = filepath.Dir(path)
	}
	return &Project{Config: cfg, Dir: dir}, nil
}

func (p *Project) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}

// resolvePlugin leaves builtin identifiers alone and resolves file paths.
func (p *Project) resolvePlugin(id string) string {
	if strings.HasPrefix(id, plugin.BuiltinPrefix) {
		return id
	}
	return p.resolve(id)
}

// Build creates an engine and populates it from the project. On error the
// engine is closed and nothing is returned.
func (p *Project) Build(opts ...audio.Option) (*audio.Engine, error) {
	e, err := audio.NewEngineFromConfig(p.Config, opts...)
	if err != nil {
		return nil, err
	}
	if err := p.populate(e); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (p *Project) populate(e *audio.Engine) error {
	for i := range p.Config.Processors {
		pc := &p.Config.Processors[i]
		proc, err := p.makeProcessor(e, pc)
		if err != nil {
			return err
		}
		if err := p.configure(proc, pc); err != nil {
			return fmt.Errorf("processor %q: %w", pc.Name, err)
		}
		logger.Debugf("created %s processor %q", proc.Kind(), pc.Name)
	}
	return e.LoadGraph(p.nodes(e))
}

func (p *Project) makeProcessor(e *audio.Engine, pc *config.ProcessorConfig) (*processor.Processor, error) {
	switch pc.Kind {
	case config.KindOscillator:
		return e.MakeOscillatorProcessor(pc.Name, pc.Frequency)
	case config.KindPlayback:
		a, err := decode.File(p.resolve(pc.Source))
		if err != nil {
			return nil, fmt.Errorf("processor %q: %w", pc.Name, err)
		}
		if a.SampleRate != e.SampleRate() {
			logger.Infof("resampling %s from %d Hz to %d Hz", pc.Source, a.SampleRate, e.SampleRate())
			if a, err = decode.Resample(a, e.SampleRate()); err != nil {
				return nil, fmt.Errorf("processor %q: %w", pc.Name, err)
			}
		}
		return e.MakePlaybackProcessor(pc.Name, a.Channels)
	case config.KindPlugin:
		return e.MakePluginProcessor(pc.Name, p.resolvePlugin(pc.Plugin))
	case config.KindMixer:
		fn, specs := processor.Mixer()
		return e.MakeGenericProcessor(pc.Name, fn, specs...)
	default:
		return nil, fmt.Errorf("%w: processor %q has unknown kind %q", config.ErrInvalid, pc.Name, pc.Kind)
	}
}

// configure applies named parameters, then the patch file, then MIDI.
func (p *Project) configure(proc *processor.Processor, pc *config.ProcessorConfig) error {
	for name, v := range pc.Params {
		i, ok := proc.ParameterIndex(name)
		if !ok {
			return fmt.Errorf("%w %q", ErrUnknownParameter, name)
		}
		if err := proc.SetParameter(i, v); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	}
	if pc.Patch != "" {
		pt, err := patch.ReadFile(p.resolve(pc.Patch))
		if err != nil {
			return err
		}
		if err := proc.SetPatch(pt); err != nil {
			return err
		}
	}
	if pc.MIDI != "" {
		n, err := proc.LoadMidi(p.resolve(pc.MIDI), false)
		if err != nil {
			return err
		}
		logger.Debugf("%s: loaded %d notes from %s", pc.Name, n, pc.MIDI)
	}
	for _, n := range pc.Notes {
		if err := proc.AddMidiNote(n.Note, n.Velocity, n.Start, n.Duration); err != nil {
			return err
		}
	}
	return nil
}

// nodes builds the graph. Without a graph section every processor becomes
// an independent sink, in declaration order.
func (p *Project) nodes(e *audio.Engine) []graph.Node {
	var nodes []graph.Node
	if len(p.Config.Graph) == 0 {
		for _, name := range e.ProcessorNames() {
			proc, _ := e.Processor(name)
			nodes = append(nodes, graph.Node{Processor: proc})
		}
		return nodes
	}
	for _, n := range p.Config.Graph {
		proc, _ := e.Processor(n.Name)
		nodes = append(nodes, graph.Node{Processor: proc, Inputs: n.Inputs})
	}
	return nodes
}

// Render renders the configured duration and, when an output path is set,
// writes the result as WAV. It returns the path written, if any.
func (p *Project) Render(e *audio.Engine) (string, error) {
	if err := e.Render(p.Config.Engine.Duration); err != nil {
		return "", err
	}
	out := p.Config.Output
	if out.Path == "" {
		return "", nil
	}
	path := p.resolve(out.Path)
	if err := e.ExportFile(path, out.BitDepth); err != nil {
		return "", err
	}
	return path, nil
}
