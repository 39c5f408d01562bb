package scope

import (
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Table is an insertion-ordered, thread-safe symbol table.
type Table struct {
	mu      sync.RWMutex
	names   []string
	entries map[string]symbol.Object
	ectx    *hcl.EvalContext
}

// New creates an empty table.
func New() *Table {
	return &Table{entries: make(map[string]symbol.Object)}
}

// Get returns the object bound to name.
func (t *Table) Get(name string) (symbol.Object, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	obj, ok := t.entries[name]
	return obj, ok
}

// Set binds name to obj, overwriting any previous binding. A nil obj is
// ignored.
func (t *Table) Set(name string, obj symbol.Object) {
	if obj == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[name]; !exists {
		t.names = append(t.names, name)
	}
	t.entries[name] = obj
	t.ectx = nil
}

// Has reports whether name is bound.
func (t *Table) Has(name string) bool {
	_, ok := t.Get(name)
	return ok
}

// Names returns the bound names in first-insertion order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]string(nil), t.names...)
}

// Len returns the number of bindings.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.names)
}

// Clone returns an independent copy. Objects themselves are shared.
func (t *Table) Clone() *Table {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c := &Table{
		names:   append([]string(nil), t.names...),
		entries: make(map[string]symbol.Object, len(t.entries)),
	}
	for k, v := range t.entries {
		c.entries[k] = v
	}
	return c
}

// Callable returns the callable bound to name, if any.
func (t *Table) Callable(name string) (symbol.Callable, bool) {
	obj, ok := t.Get(name)
	if !ok {
		return nil, false
	}
	c, ok := obj.(symbol.Callable)
	return c, ok
}

// Value returns the cty view of the object bound to name.
func (t *Table) Value(name string) (cty.Value, bool) {
	obj, ok := t.Get(name)
	if !ok {
		return cty.NilVal, false
	}
	return symbol.ToValue(obj)
}

// EvalContext returns an HCL evaluation context exposing every binding as a
// variable, and every callable additionally as a function.
func (t *Table) EvalContext() *hcl.EvalContext {
	t.mu.RLock()
	ectx := t.ectx
	t.mu.RUnlock()
	if ectx != nil {
		return ectx
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ectx != nil {
		return t.ectx
	}
	vars := make(map[string]cty.Value, len(t.entries))
	funcs := make(map[string]function.Function)
	for name, obj := range t.entries {
		if v, ok := symbol.ToValue(obj); ok {
			vars[name] = v
		}
		if c, ok := obj.(symbol.Callable); ok {
			funcs[name] = symbol.Function(c)
		}
	}
	t.ectx = &hcl.EvalContext{Variables: vars, Functions: funcs}
	return t.ectx
}
