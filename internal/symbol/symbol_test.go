package symbol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

type double struct{}

func (double) Name() string { return "double" }

func (double) Call(args []cty.Value) (cty.Value, error) {
	return args[0].Multiply(cty.NumberIntVal(2)), nil
}

func TestFuncValRoundTrip(t *testing.T) {
	v := FuncVal(double{})
	require.True(t, v.Type().Equals(FuncType))

	c, ok := AsCallable(v)
	require.True(t, ok)
	require.Equal(t, "double", c.Name())

	_, ok = AsCallable(cty.NumberIntVal(1))
	require.False(t, ok)
	_, ok = AsCallable(cty.NullVal(FuncType))
	require.False(t, ok)
}

func TestFunctionAdapter(t *testing.T) {
	fn := Function(double{})
	out, err := fn.Call([]cty.Value{cty.NumberIntVal(21)})
	require.NoError(t, err)
	require.True(t, out.RawEquals(cty.NumberIntVal(42)))
}

func TestToValueAndFromValue(t *testing.T) {
	v, ok := ToValue(double{})
	require.True(t, ok)
	require.True(t, IsCallable(FromValue(v)))

	v, ok = ToValue(cty.StringVal("x"))
	require.True(t, ok)
	require.Equal(t, "x", v.AsString())

	_, ok = ToValue(struct{}{})
	require.False(t, ok)
}

func TestFloatConversions(t *testing.T) {
	f, err := Float(cty.NumberFloatVal(1.5))
	require.NoError(t, err)
	require.Equal(t, 1.5, f)

	_, err = Float(cty.StringVal("1.5"))
	require.Error(t, err)
	_, err = Float(cty.NullVal(cty.Number))
	require.Error(t, err)

	_, err = Number(math.NaN())
	require.Error(t, err)

	vals, err := Numbers(1, 2)
	require.NoError(t, err)
	require.Len(t, vals, 2)
}
