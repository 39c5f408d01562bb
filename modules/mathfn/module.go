// Package mathfn registers the scalar math builtins.
package mathfn

import (
	"fmt"
	"math"

	"github.com/vk/accelgrid/internal/registry"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

func unary(f func(float64) float64) func(xs ...float64) (float64, error) {
	return func(xs ...float64) (float64, error) { return f(xs[0]), nil }
}

func binary(f func(float64, float64) float64) func(xs ...float64) (float64, error) {
	return func(xs ...float64) (float64, error) { return f(xs[0], xs[1]), nil }
}

// Default tolerances of isclose.
const (
	DefaultRelTol = 1e-9
	DefaultAbsTol = 0.0
)

// IsClose reports whether a and b are equal within the given relative and
// absolute tolerances.
func IsClose(a, b, rtol, atol float64) bool {
	if a == b {
		return true
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return false
	}
	diff := math.Abs(a - b)
	return diff <= math.Max(rtol*math.Max(math.Abs(a), math.Abs(b)), atol)
}

func isclose(args []cty.Value) (cty.Value, error) {
	if len(args) < 2 || len(args) > 4 {
		return cty.NilVal, fmt.Errorf("isclose: takes 2 to 4 arguments, got %d", len(args))
	}
	xs := []float64{0, 0, DefaultRelTol, DefaultAbsTol}
	for i, a := range args {
		f, err := symbol.Float(a)
		if err != nil {
			return cty.NilVal, fmt.Errorf("isclose: argument %d: %w", i+1, err)
		}
		xs[i] = f
	}
	return cty.BoolVal(IsClose(xs[0], xs[1], xs[2], xs[3])), nil
}

// Register registers the math builtins.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFloat("sqrt", 1, unary(math.Sqrt))
	r.RegisterFloat("exp", 1, unary(math.Exp))
	r.RegisterFloat("log", 1, unary(math.Log))
	r.RegisterFloat("log10", 1, unary(math.Log10))
	r.RegisterFloat("sin", 1, unary(math.Sin))
	r.RegisterFloat("cos", 1, unary(math.Cos))
	r.RegisterFloat("tan", 1, unary(math.Tan))
	r.RegisterFloat("atan", 1, unary(math.Atan))
	r.RegisterFloat("tanh", 1, unary(math.Tanh))
	r.RegisterFloat("atan2", 2, binary(math.Atan2))
	r.RegisterFloat("hypot", 2, binary(math.Hypot))
	r.RegisterFloat("pow", 2, binary(math.Pow))
	r.RegisterFunction("isclose", registry.Variadic, isclose)
}
