// Package dense provides the typed, rectangular numeric arrays that literal
// lookup tables are converted into before compiled code sees them.
package dense

import (
	"fmt"
	"math"
	"sync"

	"github.com/zclconf/go-cty/cty"
)

// Kind is the element kind shared by every element of an Array.
type Kind int

const (
	// Integer arrays were declared with whole-number literals only.
	Integer Kind = iota + 1
	// Real arrays were declared with decimal or exponent literals only.
	Real
)

func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Real:
		return "real"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MaxExactInt is the largest magnitude an Integer element may have. Beyond
// it float64 storage would round.
const MaxExactInt = 1 << 53

// Array is an immutable, row-major, one- or two-dimensional numeric array.
type Array struct {
	kind  Kind
	shape []int
	data  []float64

	once sync.Once
	val  cty.Value
}

// New validates shape against data and returns the array. data is copied.
func New(kind Kind, shape []int, data []float64) (*Array, error) {
	if kind != Integer && kind != Real {
		return nil, fmt.Errorf("invalid array kind %d", int(kind))
	}
	if len(shape) == 0 || len(shape) > 2 {
		return nil, fmt.Errorf("arrays must have one or two dimensions, got %d", len(shape))
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("array dimensions must be positive, got %v", shape)
		}
		n *= d
	}
	if n != len(data) {
		return nil, fmt.Errorf("shape %v needs %d elements, got %d", shape, n, len(data))
	}
	if kind == Integer {
		for i, f := range data {
			if f != math.Trunc(f) || math.Abs(f) > MaxExactInt {
				return nil, fmt.Errorf("element %d: %v is not an exactly representable integer", i, f)
			}
		}
	}
	return &Array{
		kind:  kind,
		shape: append([]int(nil), shape...),
		data:  append([]float64(nil), data...),
	}, nil
}

// Kind returns the element kind.
func (a *Array) Kind() Kind { return a.kind }

// Shape returns a copy of the dimensions.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Len returns the total number of elements.
func (a *Array) Len() int { return len(a.data) }

// Data returns a copy of the row-major element buffer.
func (a *Array) Data() []float64 { return append([]float64(nil), a.data...) }

// At returns the element at the given indices.
func (a *Array) At(idx ...int) (float64, error) {
	if len(idx) != len(a.shape) {
		return 0, fmt.Errorf("array has %d dimensions, got %d indices", len(a.shape), len(idx))
	}
	off := 0
	for i, ix := range idx {
		if ix < 0 || ix >= a.shape[i] {
			return 0, fmt.Errorf("index %d out of range for dimension %d of size %d", ix, i, a.shape[i])
		}
		off = off*a.shape[i] + ix
	}
	return a.data[off], nil
}

// Value returns the array as a cty list (of lists, for two dimensions).
// The conversion happens once.
func (a *Array) Value() cty.Value {
	a.once.Do(func() {
		a.val = a.build()
	})
	return a.val
}

func (a *Array) build() cty.Value {
	elem := func(f float64) cty.Value {
		if a.kind == Integer {
			return cty.NumberIntVal(int64(f))
		}
		return cty.NumberFloatVal(f)
	}
	row := func(vals []float64) cty.Value {
		out := make([]cty.Value, len(vals))
		for i, f := range vals {
			out[i] = elem(f)
		}
		return cty.ListVal(out)
	}
	if len(a.shape) == 1 {
		return row(a.data)
	}
	rows := make([]cty.Value, a.shape[0])
	for i := range rows {
		rows[i] = row(a.data[i*a.shape[1] : (i+1)*a.shape[1]])
	}
	return cty.ListVal(rows)
}

func (a *Array) String() string {
	return fmt.Sprintf("dense.Array(%s%v)", a.kind, a.shape)
}
