// Package publish exposes the result of a pipeline run as one flat,
// read-only namespace.
package publish

import (
	"fmt"
	"slices"

	"github.com/vk/accelgrid/internal/dense"
	"github.com/vk/accelgrid/internal/faults"
	"github.com/vk/accelgrid/internal/ledger"
	"github.com/vk/accelgrid/internal/snapshot"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/zclconf/go-cty/cty"
)

// Namespace is the published library. It is immutable and safe for
// concurrent use.
type Namespace struct {
	names   []string
	entries map[string]symbol.Object
	origin  map[string]string
}

// Publish builds the namespace from the union of the snapshots' export
// lists, in snapshot order, with every name resolved through view, so an
// exported name that is also an alias publishes the alias target. An
// exported name that the view cannot resolve is a resolution error.
func Publish(snapshots []*snapshot.Snapshot, view *ledger.View) (*Namespace, error) {
	ns := &Namespace{
		entries: make(map[string]symbol.Object),
		origin:  make(map[string]string),
	}
	add := func(name, module string) error {
		if _, seen := ns.entries[name]; seen {
			return nil
		}
		obj, ok := view.Get(name)
		if !ok {
			return fmt.Errorf("%w: module %q exports %q, which resolves to nothing", faults.ErrResolution, module, name)
		}
		ns.names = append(ns.names, name)
		ns.entries[name] = obj
		ns.origin[name] = module
		return nil
	}

	for _, snap := range snapshots {
		for _, name := range snap.Exports {
			if err := add(name, snap.ID); err != nil {
				return nil, err
			}
		}
	}
	return ns, nil
}

// Get returns the object published under name.
func (n *Namespace) Get(name string) (symbol.Object, bool) {
	obj, ok := n.entries[name]
	return obj, ok
}

// Names returns the published names in publication order.
func (n *Namespace) Names() []string { return slices.Clone(n.names) }

// Len returns the number of published names.
func (n *Namespace) Len() int { return len(n.names) }

// Module returns the id of the module that first exported name.
func (n *Namespace) Module(name string) (string, bool) {
	m, ok := n.origin[name]
	return m, ok
}

// Callable returns name as a callable.
func (n *Namespace) Callable(name string) (symbol.Callable, error) {
	obj, ok := n.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not published", faults.ErrResolution, name)
	}
	c, ok := obj.(symbol.Callable)
	if !ok {
		return nil, fmt.Errorf("%q is not callable", name)
	}
	return c, nil
}

// Call invokes the callable published under name.
func (n *Namespace) Call(name string, args ...cty.Value) (cty.Value, error) {
	c, err := n.Callable(name)
	if err != nil {
		return cty.NilVal, err
	}
	return c.Call(args)
}

// CallFloat is Call for functions of numbers returning a number.
func (n *Namespace) CallFloat(name string, args ...float64) (float64, error) {
	vals, err := symbol.Numbers(args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	v, err := n.Call(name, vals...)
	if err != nil {
		return 0, err
	}
	f, err := symbol.Float(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return f, nil
}

// Array returns name as a dense array.
func (n *Namespace) Array(name string) (*dense.Array, error) {
	obj, ok := n.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not published", faults.ErrResolution, name)
	}
	a, ok := obj.(*dense.Array)
	if !ok {
		return nil, fmt.Errorf("%q is not an array", name)
	}
	return a, nil
}

// Value returns the value view of name.
func (n *Namespace) Value(name string) (cty.Value, bool) {
	obj, ok := n.entries[name]
	if !ok {
		return cty.NilVal, false
	}
	return symbol.ToValue(obj)
}
