package compiler

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

type callFunc func(args []cty.Value) (cty.Value, error)

// vectorize lifts a scalar call over array arguments. Lists and tuples are
// arrays; every array argument must have the same length and scalars are
// repeated. Nested arrays are broadcast recursively.
func vectorize(name string, call callFunc) callFunc {
	var apply callFunc
	apply = func(args []cty.Value) (cty.Value, error) {
		n, err := broadcastLen(args)
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: %w", name, err)
		}
		if n < 0 {
			return call(args)
		}
		if n == 0 {
			return cty.ListValEmpty(cty.Number), nil
		}

		out := make([]cty.Value, n)
		row := make([]cty.Value, len(args))
		for i := 0; i < n; i++ {
			for j, a := range args {
				if isArray(a) {
					row[j] = element(a, i)
				} else {
					row[j] = a
				}
			}
			v, err := apply(append([]cty.Value(nil), row...))
			if err != nil {
				return cty.NilVal, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = v
		}
		return collect(out), nil
	}
	return apply
}

// broadcastLen returns the common length of the array arguments, or -1 when
// all arguments are scalars.
func broadcastLen(args []cty.Value) (int, error) {
	n := -1
	for i, a := range args {
		if !isArray(a) {
			continue
		}
		l := a.LengthInt()
		switch {
		case n < 0:
			n = l
		case l != n:
			return 0, fmt.Errorf("argument %d has length %d, expected %d", i, l, n)
		}
	}
	return n, nil
}

func isArray(v cty.Value) bool {
	if v.IsNull() || !v.IsKnown() {
		return false
	}
	t := v.Type()
	return t.IsListType() || t.IsTupleType()
}

func element(v cty.Value, i int) cty.Value {
	return v.Index(cty.NumberIntVal(int64(i)))
}

func collect(vals []cty.Value) cty.Value {
	t := vals[0].Type()
	for _, v := range vals[1:] {
		if !v.Type().Equals(t) {
			return cty.TupleVal(vals)
		}
	}
	return cty.ListVal(vals)
}
