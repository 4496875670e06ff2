// SPDX-License-Identifier: MIT
/*
Package plugin is the host side of plugin processing. A Host resolves an
identifier to a plugin Instance and hands out an opaque Handle for it; every
later call goes through that handle until Unload releases it.

Identifiers of the form "builtin:<name>" resolve to in-process factories
registered with the host. File paths ending in .so are opened as Go plugins
exporting a NewInstance function. Other binary formats are rejected.
*/
package plugin

import (
	"errors"
	"fmt"

	"render/internal/buffer"
	"render/internal/midi"
	"render/internal/param"
)

// BuiltinPrefix marks identifiers that resolve to registered factories.
const BuiltinPrefix = "builtin:"

// NewInstanceSymbol is the symbol a Go plugin must export. Its type must be
// func() (plugin.Instance, error).
const NewInstanceSymbol = "NewInstance"

var (
	ErrPluginLoad    = errors.New("plugin load failed")
	ErrUnknownHandle = errors.New("unknown plugin handle")
	ErrFault         = errors.New("plugin fault")
)

// LoadError describes why an identifier could not be turned into an
// instance. It matches ErrPluginLoad with errors.Is.
type LoadError struct {
	ID     string
	Reason string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("load plugin %q: %s: %v", e.ID, e.Reason, e.Err)
	}
	return fmt.Sprintf("load plugin %q: %s", e.ID, e.Reason)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrPluginLoad }

// Handle identifies one loaded instance within a Host. The zero Handle is
// never issued.
type Handle uint64

// Instance is a loaded plugin. Values passed to SetParameter have already
// been clamped to the ranges returned by Parameters.
type Instance interface {
	Parameters() []param.Spec
	SetParameter(index int, value float64)
	Prepare(sampleRate, blockSize int) error
	Process(in, out *buffer.Buffer, events []midi.Event) error
	Reset()
	Close() error
}

// Factory creates a fresh Instance.
type Factory func() (Instance, error)

// Host loads and drives plugin instances.
type Host interface {
	Load(id string) (Handle, error)
	Describe(h Handle) ([]param.Description, error)
	Range(h Handle, index int) (param.Range, error)
	Parameter(h Handle, index int) (float64, error)
	SetParameter(h Handle, index int, value float64) error
	ParameterName(h Handle, index int) (string, error)
	ParameterText(h Handle, index int) (string, error)
	Prepare(h Handle, sampleRate, blockSize int) error
	Process(h Handle, in, out *buffer.Buffer, events []midi.Event) error
	Reset(h Handle) error
	Unload(h Handle) error
	Live() int
}
