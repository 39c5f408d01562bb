// Package reduce registers aggregate builtins over numeric arrays, plus the
// numeric helpers taken from cty's standard library.
package reduce

import (
	"fmt"

	"github.com/vk/accelgrid/internal/registry"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Sum adds every number in vals. Lists and tuples, including nested ones,
// are flattened.
func Sum(vals ...cty.Value) (cty.Value, error) {
	total := cty.Zero
	for _, v := range vals {
		s, err := sum(v)
		if err != nil {
			return cty.NilVal, err
		}
		total = total.Add(s)
	}
	return total, nil
}

func sum(v cty.Value) (cty.Value, error) {
	if v.IsNull() || !v.IsKnown() {
		return cty.NilVal, fmt.Errorf("cannot sum a null or unknown value")
	}
	ty := v.Type()
	switch {
	case ty.Equals(cty.Number):
		return v, nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		total := cty.Zero
		for it := v.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			s, err := sum(elem)
			if err != nil {
				return cty.NilVal, err
			}
			total = total.Add(s)
		}
		return total, nil
	default:
		return cty.NilVal, fmt.Errorf("cannot sum a value of type %s", ty.FriendlyName())
	}
}

// Len returns the number of elements of a collection.
func Len(v cty.Value) (cty.Value, error) {
	if v.IsNull() || !v.IsKnown() {
		return cty.NilVal, fmt.Errorf("cannot take the length of a null or unknown value")
	}
	if !v.CanIterateElements() {
		return cty.NilVal, fmt.Errorf("cannot take the length of a value of type %s", v.Type().FriendlyName())
	}
	return cty.NumberIntVal(int64(v.LengthInt())), nil
}

// Register registers the reduction builtins.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFunction("sum", registry.Variadic, func(args []cty.Value) (cty.Value, error) {
		v, err := Sum(args...)
		if err != nil {
			return cty.NilVal, fmt.Errorf("sum: %w", err)
		}
		return v, nil
	})
	r.RegisterFunction("len", 1, func(args []cty.Value) (cty.Value, error) {
		v, err := Len(args[0])
		if err != nil {
			return cty.NilVal, fmt.Errorf("len: %w", err)
		}
		return v, nil
	})
	r.RegisterCty("abs", stdlib.AbsoluteFunc)
	r.RegisterCty("floor", stdlib.FloorFunc)
	r.RegisterCty("ceil", stdlib.CeilFunc)
	r.RegisterCty("min", stdlib.MinFunc)
	r.RegisterCty("max", stdlib.MaxFunc)
	r.RegisterCty("signum", stdlib.SignumFunc)
}
