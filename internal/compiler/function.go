package compiler

import (
	"github.com/vk/accelgrid/internal/scope"
	"github.com/vk/accelgrid/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// Mode is the execution mode of a compiled function.
type Mode int

const (
	// Native functions run a pre-built closure tree.
	Native Mode = iota + 1
	// Fallback functions run the interpreted definition.
	Fallback
)

func (m Mode) String() string {
	switch m {
	case Native:
		return "native"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Shape says how a compiled function treats array arguments.
type Shape int

const (
	// Scalar functions take their arguments as given.
	Scalar Shape = iota + 1
	// Vectorized functions apply element-wise over arrays.
	Vectorized
)

func (s Shape) String() string {
	switch s {
	case Scalar:
		return "scalar"
	case Vectorized:
		return "vectorized"
	default:
		return "unknown"
	}
}

// Function is a compiled callable. It implements symbol.Callable.
type Function struct {
	name   string
	mode   Mode
	shape  Shape
	cache  bool
	source *script.Func
	scope  *scope.Table
	call   func(args []cty.Value) (cty.Value, error)
}

// Name returns the function's name.
func (f *Function) Name() string { return f.name }

// Mode returns the execution mode.
func (f *Function) Mode() Mode { return f.mode }

// Shape returns the broadcasting shape.
func (f *Function) Shape() Shape { return f.shape }

// Cache reports whether the function was compiled with caching enabled.
func (f *Function) Cache() bool { return f.cache }

// Source returns the interpreted function this was compiled from.
func (f *Function) Source() *script.Func { return f.source }

// Scope returns the private lookup scope of a native function. Fallback
// functions have none and resolve names through their module's table.
func (f *Function) Scope() *scope.Table { return f.scope }

// Call invokes the function.
func (f *Function) Call(args []cty.Value) (cty.Value, error) {
	return f.call(args)
}

// Unresolved returns the free names of the function that its lookup scope
// does not bind.
func (f *Function) Unresolved() []string {
	tbl := f.scope
	if tbl == nil {
		tbl = f.source.Globals()
	}
	def := f.source.Definition()
	names, calls := def.Refs()
	var out []string
	for _, n := range append(append([]string(nil), names...), calls...) {
		if !tbl.Has(n) && !def.HasParam(n) {
			out = append(out, n)
		}
	}
	return out
}
