// SPDX-License-Identifier: MIT
package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	goplugin "plugin"
	"sort"
	"strings"
	"sync"

	"render/internal/buffer"
	"render/internal/log"
	"render/internal/midi"
	"render/internal/param"
)

var logger = log.For("plugin")

// Compile-time interface check.
var _ Host = (*LocalHost)(nil)

type loaded struct {
	id    string
	inst  Instance
	store *param.Store
}

// LocalHost runs instances in-process. It is safe for concurrent use.
type LocalHost struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[Handle]*loaded
	next      Handle
	openSO    func(path string) (Factory, error)
}

// NewHost returns a host that knows the given builtin factories, keyed by
// name without the "builtin:" prefix.
func NewHost(builtins map[string]Factory) *LocalHost {
	h := &LocalHost{
		factories: make(map[string]Factory, len(builtins)),
		instances: make(map[Handle]*loaded),
		openSO:    openGoPlugin,
	}
	for name, f := range builtins {
		h.factories[name] = f
	}
	return h
}

// Register adds or replaces a builtin factory.
func (h *LocalHost) Register(name string, f Factory) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.factories[name] = f
}

// Builtins lists the registered builtin identifiers, sorted.
func (h *LocalHost) Builtins() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.factories))
	for name := range h.factories {
		out = append(out, BuiltinPrefix+name)
	}
	sort.Strings(out)
	return out
}

// Load resolves id, creates an instance and issues a handle for it. On error
// nothing stays allocated.
func (h *LocalHost) Load(id string) (Handle, error) {
	factory, err := h.resolve(id)
	if err != nil {
		return 0, err
	}

	inst, err := safeCreate(factory)
	if err != nil {
		return 0, &LoadError{ID: id, Reason: "instantiate", Err: err}
	}
	if inst == nil {
		return 0, &LoadError{ID: id, Reason: "factory returned no instance"}
	}
	store, err := param.NewStore(inst.Parameters()...)
	if err != nil {
		_ = inst.Close()
		return 0, &LoadError{ID: id, Reason: "parameter table", Err: err}
	}
	// Push defaults so the instance and the store agree from the start.
	for i := range store.Len() {
		v, _ := store.Value(i)
		inst.SetParameter(i, v)
	}

	h.mu.Lock()
	h.next++
	handle := h.next
	h.instances[handle] = &loaded{id: id, inst: inst, store: store}
	live := len(h.instances)
	h.mu.Unlock()

	logger.Debugf("loaded %s as handle %d (%d live)", id, handle, live)
	return handle, nil
}

func (h *LocalHost) resolve(id string) (Factory, error) {
	if name, ok := strings.CutPrefix(id, BuiltinPrefix); ok {
		h.mu.Lock()
		f, found := h.factories[name]
		h.mu.Unlock()
		if !found {
			return nil, &LoadError{ID: id, Reason: "unknown builtin"}
		}
		return f, nil
	}

	if id == "" {
		return nil, &LoadError{ID: id, Reason: "empty identifier"}
	}
	info, err := os.Stat(id)
	if err != nil {
		return nil, &LoadError{ID: id, Reason: "not found", Err: err}
	}
	if info.IsDir() && filepath.Ext(id) == "" {
		return nil, &LoadError{ID: id, Reason: "is a directory"}
	}

	switch ext := strings.ToLower(filepath.Ext(id)); ext {
	case ".so":
		f, err := h.openSO(id)
		if err != nil {
			return nil, &LoadError{ID: id, Reason: "open go plugin", Err: err}
		}
		return f, nil
	default:
		return nil, &LoadError{ID: id, Reason: fmt.Sprintf("unsupported plugin format %q", ext)}
	}
}

func openGoPlugin(path string) (Factory, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(NewInstanceSymbol)
	if err != nil {
		return nil, err
	}
	switch fn := sym.(type) {
	case func() (Instance, error):
		return fn, nil
	case *Factory:
		return *fn, nil
	default:
		return nil, fmt.Errorf("symbol %s has type %T", NewInstanceSymbol, sym)
	}
}

func safeCreate(f Factory) (inst Instance, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrFault, r)
		}
	}()
	return f()
}

func (h *LocalHost) get(handle Handle) (*loaded, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.instances[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, handle)
	}
	return l, nil
}

// Describe returns the parameter table of the instance.
func (h *LocalHost) Describe(handle Handle) ([]param.Description, error) {
	l, err := h.get(handle)
	if err != nil {
		return nil, err
	}
	return l.store.Describe(), nil
}

// Range returns the range of one parameter.
func (h *LocalHost) Range(handle Handle, index int) (param.Range, error) {
	l, err := h.get(handle)
	if err != nil {
		return param.Range{}, err
	}
	return l.store.Range(index)
}

// Parameter returns the current value of one parameter.
func (h *LocalHost) Parameter(handle Handle, index int) (float64, error) {
	l, err := h.get(handle)
	if err != nil {
		return 0, err
	}
	return l.store.Value(index)
}

// SetParameter clamps value into the parameter's range and forwards it.
func (h *LocalHost) SetParameter(handle Handle, index int, value float64) error {
	l, err := h.get(handle)
	if err != nil {
		return err
	}
	applied, err := l.store.Set(index, value)
	if err != nil {
		return err
	}
	l.inst.SetParameter(index, applied)
	return nil
}

// ParameterName returns the name of one parameter.
func (h *LocalHost) ParameterName(handle Handle, index int) (string, error) {
	l, err := h.get(handle)
	if err != nil {
		return "", err
	}
	return l.store.Name(index)
}

// ParameterText returns the display text of one parameter.
func (h *LocalHost) ParameterText(handle Handle, index int) (string, error) {
	l, err := h.get(handle)
	if err != nil {
		return "", err
	}
	return l.store.Text(index)
}

// Prepare tells the instance the render format.
func (h *LocalHost) Prepare(handle Handle, sampleRate, blockSize int) error {
	l, err := h.get(handle)
	if err != nil {
		return err
	}
	if err := l.inst.Prepare(sampleRate, blockSize); err != nil {
		return fmt.Errorf("%w: %s: prepare: %v", ErrFault, l.id, err)
	}
	return nil
}

// Process renders one block. A panic inside the instance is reported as
// ErrFault instead of unwinding through the engine.
func (h *LocalHost) Process(handle Handle, in, out *buffer.Buffer, events []midi.Event) (err error) {
	l, err := h.get(handle)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: panic: %v", ErrFault, l.id, r)
		}
	}()
	if err := l.inst.Process(in, out, events); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrFault, l.id, err)
	}
	return nil
}

// Reset clears the instance's internal audio state. Parameters keep their
// values.
func (h *LocalHost) Reset(handle Handle) error {
	l, err := h.get(handle)
	if err != nil {
		return err
	}
	l.inst.Reset()
	return nil
}

// Unload closes the instance and invalidates the handle. Unloading a handle
// twice returns ErrUnknownHandle.
func (h *LocalHost) Unload(handle Handle) error {
	h.mu.Lock()
	l, ok := h.instances[handle]
	delete(h.instances, handle)
	live := len(h.instances)
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownHandle, handle)
	}
	logger.Debugf("unloaded %s handle %d (%d live)", l.id, handle, live)
	if err := l.inst.Close(); err != nil {
		return fmt.Errorf("close %s: %w", l.id, err)
	}
	return nil
}

// Live returns the number of loaded instances.
func (h *LocalHost) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.instances)
}
