// SPDX-License-Identifier: MIT
package processor

import (
	"render/internal/buffer"
	"render/internal/param"
	"render/internal/plugin"
)

// hostParams routes parameter calls to a plugin handle.
type hostParams struct {
	host   plugin.Host
	handle plugin.Handle
	count  int
}

func (h hostParams) Len() int { return h.count }

func (h hostParams) Describe() []param.Description {
	d, _ := h.host.Describe(h.handle)
	return d
}

func (h hostParams) Range(i int) (param.Range, error) { return h.host.Range(h.handle, i) }
func (h hostParams) Value(i int) (float64, error)     { return h.host.Parameter(h.handle, i) }
func (h hostParams) Name(i int) (string, error)       { return h.host.ParameterName(h.handle, i) }
func (h hostParams) Text(i int) (string, error)       { return h.host.ParameterText(h.handle, i) }

func (h hostParams) Set(i int, v float64) (float64, error) {
	if err := h.host.SetParameter(h.handle, i, v); err != nil {
		return 0, err
	}
	return h.host.Parameter(h.handle, i)
}

type pluginKernel struct {
	host   plugin.Host
	handle plugin.Handle
	in     *buffer.Buffer
}

// NewPlugin loads id through host and wraps the instance. Load and prepare
// failures are returned as *plugin.LoadError and leave nothing loaded.
func NewPlugin(name string, f Format, host plugin.Host, id string) (*Processor, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}
	handle, err := host.Load(id)
	if err != nil {
		return nil, err
	}
	if err := host.Prepare(handle, f.SampleRate, f.BlockSize); err != nil {
		_ = host.Unload(handle)
		return nil, &plugin.LoadError{ID: id, Reason: "prepare", Err: err}
	}
	desc, err := host.Describe(handle)
	if err != nil {
		_ = host.Unload(handle)
		return nil, &plugin.LoadError{ID: id, Reason: "describe", Err: err}
	}
	k := &pluginKernel{host: host, handle: handle, in: buffer.New(Channels, f.BlockSize)}
	params := hostParams{host: host, handle: handle, count: len(desc)}
	return newProcessor(name, KindPlugin, f, params, k), nil
}

// Inputs are summed into the plugin's input bus.
func (k *pluginKernel) process(p *Processor, inputs []*buffer.Buffer, out *buffer.Buffer) error {
	k.in.SetLen(out.Len())
	k.in.Clear()
	for _, in := range inputs {
		k.in.MixDown(in)
	}
	return k.host.Process(k.handle, k.in, out, p.events)
}

func (k *pluginKernel) reset() { _ = k.host.Reset(k.handle) }

func (k *pluginKernel) close() error {
	k.in = nil
	return k.host.Unload(k.handle)
}
