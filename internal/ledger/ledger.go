// Package ledger holds the rebinding ledger: the single mapping from every
// public and internal name of a pipeline run to its final object.
//
// A Ledger is built up with Record and Alias, then frozen. The frozen View
// is immutable and is what gets broadcast into module tables and compiled
// function scopes, and what the namespace is published from.
package ledger

import (
	"fmt"
	"slices"

	"github.com/vk/accelgrid/internal/faults"
	"github.com/vk/accelgrid/internal/symbol"
)

// Alias is a declared alternate name for another ledger entry.
type Alias struct {
	Name   string
	Target string
	// Modules additionally receive the alias in their own tables. An empty
	// list limits the alias to the flat namespace and native scopes.
	Modules []string
}

// Ledger is the mutable, pre-freeze ledger. It is not safe for concurrent
// use; the pipeline builds it from a single goroutine.
type Ledger struct {
	names   []string
	entries map[string]symbol.Object
	aliases []Alias
	frozen  bool
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{entries: make(map[string]symbol.Object)}
}

// Record inserts or overwrites name. The last write wins; the name keeps its
// first-insertion position. Recording after Freeze panics.
func (l *Ledger) Record(name string, obj symbol.Object) {
	l.mustBeOpen("Record")
	if obj == nil {
		panic(fmt.Sprintf("ledger: nil object recorded for %q", name))
	}
	if _, ok := l.entries[name]; !ok {
		l.names = append(l.names, name)
	}
	l.entries[name] = obj
}

// Alias declares name as an alternate name for target. Aliases are resolved
// at Freeze and win over any value recorded under the same name.
func (l *Ledger) Alias(name, target string, modules ...string) {
	l.mustBeOpen("Alias")
	l.aliases = append(l.aliases, Alias{Name: name, Target: target, Modules: slices.Clone(modules)})
}

// Get returns the recorded object for name, ignoring aliases.
func (l *Ledger) Get(name string) (symbol.Object, bool) {
	obj, ok := l.entries[name]
	return obj, ok
}

// Names returns the recorded names in first-insertion order.
func (l *Ledger) Names() []string {
	return slices.Clone(l.names)
}

// Len returns the number of recorded names.
func (l *Ledger) Len() int { return len(l.names) }

// Freeze resolves aliases and returns the immutable view. An alias whose
// target was never recorded is a resolution error. Aliases may target other
// aliases declared before them.
func (l *Ledger) Freeze() (*View, error) {
	l.mustBeOpen("Freeze")

	v := &View{
		recorded: make(map[string]symbol.Object, len(l.entries)),
		final:    make(map[string]symbol.Object, len(l.entries)+len(l.aliases)),
		names:    slices.Clone(l.names),
		all:      slices.Clone(l.names),
	}
	for k, obj := range l.entries {
		v.recorded[k] = obj
		v.final[k] = obj
	}
	for _, a := range l.aliases {
		obj, ok := v.final[a.Target]
		if !ok {
			return nil, fmt.Errorf("%w: alias %q targets undefined name %q", faults.ErrResolution, a.Name, a.Target)
		}
		if _, ok := v.final[a.Name]; !ok {
			v.all = append(v.all, a.Name)
		}
		v.final[a.Name] = obj
		v.aliases = append(v.aliases, resolved{Alias: a, obj: obj})
	}
	l.frozen = true
	return v, nil
}

// Frozen reports whether Freeze has succeeded.
func (l *Ledger) Frozen() bool { return l.frozen }

func (l *Ledger) mustBeOpen(op string) {
	if l.frozen {
		panic("ledger: " + op + " called after Freeze")
	}
}
