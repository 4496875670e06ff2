// SPDX-License-Identifier: MIT
/*
Package builtin provides the plugins that ship with the renderer and are
addressed as "builtin:<name>": a polyphonic synth and three effects.
*/
package builtin

import (
	"render/internal/plugin"
)

// Factories returns the builtin plugin factories keyed by name.
func Factories() map[string]plugin.Factory {
	return map[string]plugin.Factory{
		"synth": func() (plugin.Instance, error) { return NewSynth(), nil },
		"gain":  func() (plugin.Instance, error) { return NewGain(), nil },
		"delay": func() (plugin.Instance, error) { return NewDelay(), nil },
		"gate":  func() (plugin.Instance, error) { return NewGate(), nil },
	}
}

// NewHost returns a plugin host with every builtin registered.
func NewHost() *plugin.LocalHost {
	return plugin.NewHost(Factories())
}
