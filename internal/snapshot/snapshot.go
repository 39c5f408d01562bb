// Package snapshot loads isolated copies of catalogue modules.
//
// Every call to Loader.Load reads the module source again and executes it
// into a brand-new symbol table, so snapshots never share mutable state with
// each other or with a module loaded for any other purpose. Modules listed
// under a descriptor's requires are loaded fresh in the same way and their
// exports copied into the new table before the module's own code runs.
package snapshot

import (
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/accelgrid/internal/config"
	"github.com/vk/accelgrid/internal/scope"
	"github.com/vk/accelgrid/internal/script"
)

// Attribute names with special meaning at the top level of a module.
const (
	ExportsAttr  = "exports"
	InternalAttr = "internal"
)

// Snapshot is an independently executed instance of a module.
type Snapshot struct {
	ID    string
	Table *scope.Table
	// Exports is the ordered list of public names.
	Exports []string
	// Internal lists extra names that take part in rebinding but are not
	// published.
	Internal []string
	// Decls maps attribute names to their declaring expressions.
	Decls map[string]hclsyntax.Expression

	File       *script.File
	Descriptor *config.Submodule
}

// Names returns Exports followed by Internal, without duplicates.
func (s *Snapshot) Names() []string {
	seen := make(map[string]bool, len(s.Exports)+len(s.Internal))
	out := make([]string, 0, len(s.Exports)+len(s.Internal))
	for _, list := range [][]string{s.Exports, s.Internal} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// Defines reports whether the module's own source defines name, as opposed
// to receiving it from a builtin or a required module.
func (s *Snapshot) Defines(name string) bool {
	if _, ok := s.Decls[name]; ok {
		return true
	}
	_, ok := s.Function(name)
	return ok
}

// Function returns the module's own definition of name.
func (s *Snapshot) Function(name string) (*script.Definition, bool) {
	for _, def := range s.File.Functions {
		if def.Name == name {
			return def, true
		}
	}
	return nil, false
}

// Source returns the module's source text.
func (s *Snapshot) Source() []byte {
	return s.File.Source
}
