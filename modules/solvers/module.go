// Package solvers registers the root-finding builtins used by module code:
// root_secant and root_brent. Both take the residual as a function value and
// pass any extra arguments through to it.
package solvers

import (
	"fmt"

	"github.com/vk/accelgrid/internal/registry"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// residual adapts a callable and its trailing arguments into a Func.
func residual(fv, extra cty.Value) (Func, error) {
	c, ok := symbol.AsCallable(fv)
	if !ok {
		return nil, fmt.Errorf("first argument must be a function")
	}
	var rest []cty.Value
	if !extra.IsNull() {
		if !extra.CanIterateElements() {
			return nil, fmt.Errorf("args must be a list or tuple, got %s", extra.Type().FriendlyName())
		}
		rest = extra.AsValueSlice()
	}
	return func(x float64) (float64, error) {
		xv, err := symbol.Number(x)
		if err != nil {
			return 0, err
		}
		out, err := c.Call(append([]cty.Value{xv}, rest...))
		if err != nil {
			return 0, err
		}
		return symbol.Float(out)
	}, nil
}

func floats(args []cty.Value) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		if a.IsNull() {
			continue
		}
		f, err := symbol.Float(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+2, err)
		}
		out[i] = f
	}
	return out, nil
}

// rootSecant is root_secant(f, x0, xtol, ytol, maxiter, args). A null ytol
// disables the residual check.
func rootSecant(args []cty.Value) (cty.Value, error) {
	f, err := residual(args[0], args[5])
	if err != nil {
		return cty.NilVal, err
	}
	xs, err := floats(args[1:5])
	if err != nil {
		return cty.NilVal, err
	}
	root, err := Secant(f, xs[0], xs[1], xs[2], int(xs[3]))
	if err != nil {
		return cty.NilVal, err
	}
	return symbol.Number(root)
}

// rootBrent is root_brent(f, a, b, xtol, maxiter, args).
func rootBrent(args []cty.Value) (cty.Value, error) {
	f, err := residual(args[0], args[5])
	if err != nil {
		return cty.NilVal, err
	}
	xs, err := floats(args[1:5])
	if err != nil {
		return cty.NilVal, err
	}
	root, err := Brent(f, xs[0], xs[1], xs[2], int(xs[3]))
	if err != nil {
		return cty.NilVal, err
	}
	return symbol.Number(root)
}

// Register registers the solver builtins.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFunction("root_secant", 6, rootSecant)
	r.RegisterFunction("root_brent", 6, rootBrent)
}
