// Package symbol defines the objects that live in module symbol tables:
// callables, dense arrays, and plain values. It also bridges callables into
// the cty/HCL world, where functions are looked up by name in an
// hcl.EvalContext and may be passed around as capsule values.
package symbol

import (
	"fmt"
	"math"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Callable is anything module code can call.
type Callable interface {
	Name() string
	Call(args []cty.Value) (cty.Value, error)
}

// Valuer is implemented by objects that have a cty representation, such as
// dense arrays.
type Valuer interface {
	Value() cty.Value
}

// Object is a symbol-table entry. It is one of Callable, Valuer or cty.Value.
type Object any

type ref struct {
	c Callable
}

// FuncType is the capsule type used when a callable is referenced as a value,
// for example when a residual function is handed to a solver.
var FuncType = cty.Capsule("function", reflect.TypeOf(ref{}))

// FuncVal wraps c in a capsule value.
func FuncVal(c Callable) cty.Value {
	return cty.CapsuleVal(FuncType, &ref{c: c})
}

// AsCallable unwraps a capsule produced by FuncVal.
func AsCallable(v cty.Value) (Callable, bool) {
	if v.IsNull() || !v.IsKnown() || !v.Type().Equals(FuncType) {
		return nil, false
	}
	r, ok := v.EncapsulatedValue().(*ref)
	if !ok || r.c == nil {
		return nil, false
	}
	return r.c, true
}

// Function adapts c into a cty function so it can be installed into an
// hcl.EvalContext. Arity is checked by the callable itself.
func Function(c Callable) function.Function {
	return function.New(&function.Spec{
		Description: c.Name(),
		VarParam: &function.Parameter{
			Name:             "args",
			Type:             cty.DynamicPseudoType,
			AllowDynamicType: true,
			AllowNull:        true,
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return c.Call(args)
		},
	})
}

// ToValue returns the cty view of obj.
func ToValue(obj Object) (cty.Value, bool) {
	switch o := obj.(type) {
	case cty.Value:
		return o, true
	case Callable:
		return FuncVal(o), true
	case Valuer:
		return o.Value(), true
	default:
		return cty.NilVal, false
	}
}

// FromValue is the inverse of ToValue for values read back out of module
// code: function capsules become callables, everything else stays a value.
func FromValue(v cty.Value) Object {
	if c, ok := AsCallable(v); ok {
		return c
	}
	return v
}

// IsCallable reports whether obj can be called.
func IsCallable(obj Object) bool {
	_, ok := obj.(Callable)
	return ok
}

// Float converts a known, non-null number to float64.
func Float(v cty.Value) (float64, error) {
	if v.IsNull() || !v.IsKnown() {
		return 0, fmt.Errorf("expected a number, got %s", describe(v))
	}
	if !v.Type().Equals(cty.Number) {
		return 0, fmt.Errorf("expected a number, got %s", v.Type().FriendlyName())
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// Number converts f to a cty number. NaN has no cty representation.
func Number(f float64) (cty.Value, error) {
	if math.IsNaN(f) {
		return cty.NilVal, fmt.Errorf("result is not a number")
	}
	return cty.NumberFloatVal(f), nil
}

// Numbers converts a slice of floats to cty values.
func Numbers(fs ...float64) ([]cty.Value, error) {
	out := make([]cty.Value, len(fs))
	for i, f := range fs {
		v, err := Number(f)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func describe(v cty.Value) string {
	switch {
	case !v.IsKnown():
		return "an unknown value"
	case v.IsNull():
		return "null"
	default:
		return v.Type().FriendlyName()
	}
}
