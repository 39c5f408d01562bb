package registry

import (
	"fmt"
	"log/slog"

	"github.com/vk/accelgrid/internal/scope"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Variadic marks a builtin that accepts any number of arguments.
const Variadic = -1

// Module is the interface that all builtin modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Builtin is a host function. It implements symbol.Callable.
type Builtin struct {
	name  string
	arity int
	fn    func(args []cty.Value) (cty.Value, error)
}

// Name returns the name module code calls the builtin by.
func (b *Builtin) Name() string { return b.name }

// Arity returns the number of arguments, or Variadic.
func (b *Builtin) Arity() int { return b.arity }

// Call checks arity and invokes the Go implementation.
func (b *Builtin) Call(args []cty.Value) (cty.Value, error) {
	if b.arity != Variadic && len(args) != b.arity {
		return cty.NilVal, fmt.Errorf("%s: takes %d arguments, got %d", b.name, b.arity, len(args))
	}
	return b.fn(args)
}

// Registry holds the builtins of a single application instance.
type Registry struct {
	builtins map[string]*Builtin
	order    []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{builtins: make(map[string]*Builtin)}
}

// Load creates a registry populated by modules, in order.
func Load(modules ...Module) *Registry {
	r := New()
	for _, m := range modules {
		m.Register(r)
	}
	return r
}

// RegisterFunction registers a builtin taking arity arguments.
func (r *Registry) RegisterFunction(name string, arity int, fn func(args []cty.Value) (cty.Value, error)) {
	if _, exists := r.builtins[name]; exists {
		panic(fmt.Sprintf("builtin with name '%s' already registered", name))
	}
	slog.Debug("Registering builtin.", "name", name, "arity", arity)
	r.builtins[name] = &Builtin{name: name, arity: arity, fn: fn}
	r.order = append(r.order, name)
}

// RegisterFloat registers a numeric kernel. Arguments are converted to
// float64 and the result back to a number; NaN results are errors.
func (r *Registry) RegisterFloat(name string, arity int, fn func(xs ...float64) (float64, error)) {
	r.RegisterFunction(name, arity, func(args []cty.Value) (cty.Value, error) {
		xs := make([]float64, len(args))
		for i, a := range args {
			f, err := symbol.Float(a)
			if err != nil {
				return cty.NilVal, fmt.Errorf("%s: argument %d: %w", name, i+1, err)
			}
			xs[i] = f
		}
		out, err := fn(xs...)
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: %w", name, err)
		}
		v, err := symbol.Number(out)
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	})
}

// RegisterCty registers an existing cty function, such as one from
// cty's stdlib, as a builtin.
func (r *Registry) RegisterCty(name string, fn function.Function) {
	arity := len(fn.Params())
	if fn.VarParam() != nil {
		arity = Variadic
	}
	r.RegisterFunction(name, arity, func(args []cty.Value) (cty.Value, error) {
		v, err := fn.Call(args)
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: %w", name, err)
		}
		return v, nil
	})
}

// Lookup returns the builtin registered under name.
func (r *Registry) Lookup(name string) (*Builtin, bool) {
	b, ok := r.builtins[name]
	return b, ok
}

// Names returns builtin names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of builtins.
func (r *Registry) Len() int { return len(r.order) }

// Seed binds every builtin into t.
func (r *Registry) Seed(t *scope.Table) {
	for _, name := range r.order {
		t.Set(name, r.builtins[name])
	}
}
