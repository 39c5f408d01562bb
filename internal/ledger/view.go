package ledger

import (
	"slices"

	"github.com/vk/accelgrid/internal/symbol"
)

type resolved struct {
	Alias
	obj symbol.Object
}

// View is a frozen ledger.
type View struct {
	// names and recorded hold the generic entries, final adds the aliases.
	names    []string
	all      []string
	recorded map[string]symbol.Object
	final    map[string]symbol.Object
	aliases  []resolved
}

// Get returns the final object for name, aliases included.
func (v *View) Get(name string) (symbol.Object, bool) {
	obj, ok := v.final[name]
	return obj, ok
}

// Recorded returns the object recorded for name before aliases applied.
func (v *View) Recorded(name string) (symbol.Object, bool) {
	obj, ok := v.recorded[name]
	return obj, ok
}

// Names returns every name in the view: recorded names first, then aliases
// that were not also recorded.
func (v *View) Names() []string {
	return slices.Clone(v.all)
}

// Len returns the number of names in the view.
func (v *View) Len() int { return len(v.all) }

// Aliases returns the declared aliases in declaration order.
func (v *View) Aliases() []Alias {
	out := make([]Alias, len(v.aliases))
	for i, a := range v.aliases {
		out[i] = a.Alias
	}
	return out
}

// Setter is anything the view can be broadcast into. *scope.Table
// satisfies it.
type Setter interface {
	Set(name string, obj symbol.Object)
}

// Target is one broadcast destination. Module is the snapshot id a table
// belongs to; it is empty for compiled function scopes.
type Target struct {
	Module string
	Into   Setter
}

// Broadcast writes the view into every target in three passes: recorded
// values and arrays, then recorded callables, then aliases. Aliases always
// win. A module-scoped alias reaches a module table only if the module is
// listed; function scopes receive every alias.
func (v *View) Broadcast(targets ...Target) {
	for _, t := range targets {
		for _, name := range v.names {
			if obj := v.recorded[name]; !symbol.IsCallable(obj) {
				t.Into.Set(name, obj)
			}
		}
	}
	for _, t := range targets {
		for _, name := range v.names {
			if obj := v.recorded[name]; symbol.IsCallable(obj) {
				t.Into.Set(name, obj)
			}
		}
	}
	for _, t := range targets {
		for _, a := range v.aliases {
			if t.Module == "" || slices.Contains(a.Modules, t.Module) {
				t.Into.Set(a.Name, a.obj)
			}
		}
	}
}
