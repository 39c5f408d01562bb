package snapshot

import (
	"fmt"
	"strings"

	"github.com/vk/accelgrid/internal/script"
)

// evaluationOrder sorts attributes so each one is evaluated after every
// attribute it reads, directly or through a function defined in the same
// file. Ties keep source order. Cycles are errors.
func evaluationOrder(file *script.File) ([]*script.Attribute, error) {
	attrs := make(map[string]*script.Attribute, len(file.Attributes))
	for _, a := range file.Attributes {
		attrs[a.Name] = a
	}
	funcs := make(map[string]*script.Definition, len(file.Functions))
	for _, d := range file.Functions {
		funcs[d.Name] = d
	}

	// funcRefs collects every name a local function reaches.
	funcRefs := make(map[string]map[string]bool)
	var reach func(name string, into map[string]bool, seen map[string]bool)
	reach = func(name string, into map[string]bool, seen map[string]bool) {
		if seen[name] {
			return
		}
		seen[name] = true
		def, ok := funcs[name]
		if !ok {
			return
		}
		names, calls := def.Refs()
		for _, n := range names {
			into[n] = true
			reach(n, into, seen)
		}
		for _, c := range calls {
			into[c] = true
			reach(c, into, seen)
		}
	}
	for name := range funcs {
		set := make(map[string]bool)
		reach(name, set, make(map[string]bool))
		funcRefs[name] = set
	}

	deps := func(a *script.Attribute) []string {
		set := make(map[string]bool)
		direct := append(script.References(a.Expr), script.CalledFunctions(a.Expr)...)
		for _, n := range direct {
			set[n] = true
			for m := range funcRefs[n] {
				set[m] = true
			}
		}
		var out []string
		// Iterate in source order for a deterministic result.
		for _, other := range file.Attributes {
			if set[other.Name] {
				out = append(out, other.Name)
			}
		}
		return out
	}

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(attrs))
	order := make([]*script.Attribute, 0, len(attrs))
	var path []string
	var visit func(a *script.Attribute) error
	visit = func(a *script.Attribute) error {
		switch state[a.Name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("attribute cycle: %s -> %s", strings.Join(path, " -> "), a.Name)
		}
		state[a.Name] = visiting
		path = append(path, a.Name)
		for _, d := range deps(a) {
			if err := visit(attrs[d]); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[a.Name] = done
		order = append(order, a)
		return nil
	}
	for _, a := range file.Attributes {
		if err := visit(a); err != nil {
			return nil, err
		}
	}
	return order, nil
}
