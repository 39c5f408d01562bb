package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Catalogue is the unified, format-agnostic description of a library to
// transform.
type Catalogue struct {
	Name       string
	Submodules []*Submodule
	Rewrites   []*Rewrite
	Aliases    []*Alias
	Options    Options
}

// Options are catalogue-wide transformation switches.
type Options struct {
	// Vectorize compiles every function with element-wise broadcasting.
	Vectorize bool
	// Cache enables the in-memory compiled-artifact cache. Off by default:
	// every run recompiles from scratch.
	Cache bool
	// SolverVariants selects declared "native" function variants instead of
	// applying textual rewrites.
	SolverVariants bool
}

// Submodule describes one module of the library.
type Submodule struct {
	// ID is the dotted module identifier, e.g. "fluids.friction".
	ID string
	// Source is the module file, relative to the catalogue root.
	Source string
	// Requires lists modules whose exports are visible while this module
	// executes.
	Requires []string
	// Exports and Internal override the module's own exports and internal
	// attributes when non-empty.
	Exports  []string
	Internal []string
	// ForceFallback skips native compilation for the listed names.
	ForceFallback []string
}

// Rewrite is an allow-listed textual patch of one function.
type Rewrite struct {
	Module   string
	Function string
	Rules    []Rule
	// Idempotent tolerates rules that match nothing.
	Idempotent bool
}

// Rule is a literal find/replace pair.
type Rule struct {
	Match   string
	Replace string
}

// Alias declares an alternate public name for a canonical object.
type Alias struct {
	Name   string
	Target string
	// Modules additionally receive the alias in their own tables.
	Modules []string
}

// Submodule returns the descriptor with the given id.
func (c *Catalogue) Submodule(id string) (*Submodule, bool) {
	for _, s := range c.Submodules {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// RewritesFor returns the rewrites that target the given module, in
// declaration order.
func (c *Catalogue) RewritesFor(id string) []*Rewrite {
	var out []*Rewrite
	for _, r := range c.Rewrites {
		if r.Module == id {
			out = append(out, r)
		}
	}
	return out
}

// Validate checks the catalogue for internal consistency.
func (c *Catalogue) Validate() error {
	var errs []string

	if len(c.Submodules) == 0 {
		errs = append(errs, "catalogue declares no submodules")
	}

	ids := make(map[string]bool)
	for i, s := range c.Submodules {
		switch {
		case s.ID == "":
			errs = append(errs, fmt.Sprintf("submodule %d: missing id", i))
		case ids[s.ID]:
			errs = append(errs, fmt.Sprintf("submodule '%s': declared more than once", s.ID))
		}
		ids[s.ID] = true

		if s.Source == "" {
			errs = append(errs, fmt.Sprintf("submodule '%s': missing source", s.ID))
		} else if !fsValid(s.Source) {
			errs = append(errs, fmt.Sprintf("submodule '%s': source '%s' must be a relative slash-separated path", s.ID, s.Source))
		}
		for _, list := range [][]string{s.Exports, s.Internal, s.ForceFallback} {
			for _, name := range list {
				if !hclsyntax.ValidIdentifier(name) {
					errs = append(errs, fmt.Sprintf("submodule '%s': '%s' is not a valid name", s.ID, name))
				}
			}
		}
	}

	for _, s := range c.Submodules {
		for _, req := range s.Requires {
			if !ids[req] {
				errs = append(errs, fmt.Sprintf("submodule '%s': requires unknown submodule '%s'", s.ID, req))
			}
			if req == s.ID {
				errs = append(errs, fmt.Sprintf("submodule '%s': requires itself", s.ID))
			}
		}
	}

	for _, r := range c.Rewrites {
		if !ids[r.Module] {
			errs = append(errs, fmt.Sprintf("rewrite of '%s': unknown submodule '%s'", r.Function, r.Module))
		}
		if r.Function == "" {
			errs = append(errs, fmt.Sprintf("rewrite in '%s': missing function", r.Module))
		}
		if len(r.Rules) == 0 {
			errs = append(errs, fmt.Sprintf("rewrite of '%s.%s': no rules", r.Module, r.Function))
		}
		for i, rule := range r.Rules {
			if rule.Match == "" {
				errs = append(errs, fmt.Sprintf("rewrite of '%s.%s': rule %d has an empty match", r.Module, r.Function, i+1))
			}
		}
	}

	seen := make(map[string]bool)
	for _, a := range c.Aliases {
		if !hclsyntax.ValidIdentifier(a.Name) || !hclsyntax.ValidIdentifier(a.Target) {
			errs = append(errs, fmt.Sprintf("alias '%s' -> '%s': names must be identifiers", a.Name, a.Target))
		}
		if a.Name == a.Target {
			errs = append(errs, fmt.Sprintf("alias '%s': aliases itself", a.Name))
		}
		if seen[a.Name] {
			errs = append(errs, fmt.Sprintf("alias '%s': declared more than once", a.Name))
		}
		seen[a.Name] = true
		for _, m := range a.Modules {
			if !ids[m] {
				errs = append(errs, fmt.Sprintf("alias '%s': unknown submodule '%s'", a.Name, m))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("catalogue validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func fsValid(p string) bool {
	return !path.IsAbs(p) && !strings.Contains(p, `\`) && path.Clean(p) == p && !strings.HasPrefix(p, "../") && p != ".."
}
