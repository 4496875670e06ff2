// SPDX-License-Identifier: MIT
package audio

import (
	"errors"

	"render/internal/graph"
	"render/internal/param"
	"render/internal/plugin"
)

var (
	ErrConfiguration = errors.New("invalid engine configuration")
	ErrDuplicateName = errors.New("duplicate processor name")
	ErrNotFound      = errors.New("processor not found")
	ErrRender        = errors.New("render failed")
	ErrClosed        = errors.New("engine closed")
)

// Errors raised by the engine's collaborators, re-exported so callers can
// match every engine failure against this package.
var (
	ErrPluginLoad      = plugin.ErrPluginLoad
	ErrGraphValidation = graph.ErrValidation
	ErrUnknownNode     = graph.ErrUnknownNode
	ErrCycle           = graph.ErrCycle
	ErrDuplicateNode   = graph.ErrDuplicateNode
	ErrIndex           = param.ErrIndex
	ErrValueRange      = param.ErrValueRange
	ErrNonFiniteOutput = graph.ErrNonFinite
)
