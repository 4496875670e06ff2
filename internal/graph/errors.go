// SPDX-License-Identifier: MIT
package graph

import (
	"errors"
	"fmt"
)

var (
	ErrValidation    = errors.New("graph validation failed")
	ErrUnknownNode   = errors.New("unknown node")
	ErrCycle         = errors.New("cycle detected")
	ErrDuplicateNode = errors.New("duplicate node")
	ErrNonFinite     = errors.New("non-finite output")
)

// ValidationError reports why a node list could not be compiled. It matches
// ErrValidation and the specific reason (ErrUnknownNode, ErrCycle or
// ErrDuplicateNode) with errors.Is.
type ValidationError struct {
	Reason error
	Node   string
	Detail string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%v: %v", ErrValidation, e.Reason)
	if e.Node != "" {
		msg += fmt.Sprintf(" %q", e.Node)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(reason error, node, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Node: node, Detail: fmt.Sprintf(format, args...)}
}

// NodeError attributes a render failure to one node.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string { return fmt.Sprintf("node %q: %v", e.Node, e.Err) }

func (e *NodeError) Unwrap() error { return e.Err }
