package script

import (
	"errors"
	"testing"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/accelgrid/internal/scope"
	"github.com/zclconf/go-cty/cty"
)

const moduleSrc = `
exports = ["Reynolds", "scaled"]
k       = 2

function "Reynolds" {
  params = [rho, V, D, mu]
  result = rho * V * D / mu
}

function "scaled" {
  params   = [x, factor]
  defaults = { factor = k }
  result   = x * factor
  on_fail  = "scaled failed for ${x}"
}

function "solve" {
  params   = [x, maxiter]
  defaults = { maxiter = 10 }
  kwargs   = true
  mode     = "fallback"
  result   = x + maxiter
  variant "native" {
    params = [x]
    result = x + 1
  }
}
`

type failing struct{ err error }

func (f failing) Name() string                          { return "boom" }
func (f failing) Call(_ []cty.Value) (cty.Value, error) { return cty.NilVal, f.err }

func TestParse(t *testing.T) {
	f, err := Parse("mod.hcl", []byte(moduleSrc))
	require.NoError(t, err)

	names := []string{}
	for _, a := range f.Attributes {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"exports", "k"}, names)

	require.Len(t, f.Functions, 3)
	re := f.Functions[0]
	assert.Equal(t, "Reynolds", re.Name)
	assert.Equal(t, []string{"rho", "V", "D", "mu"}, re.Params)
	assert.Contains(t, string(re.Source), `function "Reynolds"`)
	assert.True(t, len(re.Source) > 0 && re.Source[len(re.Source)-1] == '}')

	solve := f.Functions[2]
	assert.True(t, solve.Kwargs)
	assert.Equal(t, ModeFallback, solve.Mode)
	require.Contains(t, solve.Variants, "native")

	v, ok := solve.Variant("native")
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, v.Params)
	assert.False(t, v.Kwargs)
	assert.Equal(t, ModeFallback, v.Mode)
	_, ok = solve.Variant("missing")
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "syntax", src: `function "f" {`},
		{name: "missing result", src: `function "f" { params = [x] }`},
		{name: "unknown argument", src: `function "f" { result = 1
  speed = 3 }`},
		{name: "bad default", src: `function "f" {
  params = [x]
  defaults = { y = 1 }
  result = x
}`},
		{name: "duplicate", src: `f = 1
function "f" { result = 1 }`},
		{name: "bad block", src: `resource "f" { }`},
		{name: "bad mode", src: `function "f" {
  mode = "turbo"
  result = 1
}`},
		{name: "duplicate variant", src: `function "f" {
  result = 1
  variant "native" { result = 2 }
  variant "native" { result = 3 }
}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("bad.hcl", []byte(tc.src))
			require.Error(t, err)
		})
	}
}

func TestParseFunction(t *testing.T) {
	def, err := ParseFunction("f.hcl", []byte(`function "f" {
  params = [x]
  result = x * 2
}`))
	require.NoError(t, err)
	assert.Equal(t, "f", def.Name)

	_, err = ParseFunction("f.hcl", []byte(`a = 1`))
	require.Error(t, err)
}

func bindAll(t *testing.T, src string) (*scope.Table, map[string]*Func) {
	t.Helper()
	f, err := Parse("mod.hcl", []byte(src))
	require.NoError(t, err)
	tbl := scope.New()
	tbl.Set("k", cty.NumberIntVal(2))
	funcs := map[string]*Func{}
	for _, def := range f.Functions {
		fn := Bind(def, tbl)
		tbl.Set(def.Name, fn)
		funcs[def.Name] = fn
	}
	return tbl, funcs
}

func TestFuncCall(t *testing.T) {
	tbl, funcs := bindAll(t, moduleSrc)

	t.Run("positional", func(t *testing.T) {
		v, err := funcs["Reynolds"].Call([]cty.Value{
			cty.NumberIntVal(1000), cty.NumberFloatVal(2), cty.NumberFloatVal(0.1), cty.NumberFloatVal(0.001),
		})
		require.NoError(t, err)
		f, _ := v.AsBigFloat().Float64()
		assert.InDelta(t, 200000.0, f, 1e-6)
	})

	t.Run("default resolves through globals at call time", func(t *testing.T) {
		v, err := funcs["scaled"].Call([]cty.Value{cty.NumberIntVal(3)})
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.NumberIntVal(6)))

		tbl.Set("k", cty.NumberIntVal(5))
		v, err = funcs["scaled"].Call([]cty.Value{cty.NumberIntVal(3)})
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.NumberIntVal(15)))
	})

	t.Run("kwargs override", func(t *testing.T) {
		v, err := funcs["solve"].Call([]cty.Value{
			cty.NumberIntVal(1),
			cty.ObjectVal(map[string]cty.Value{"maxiter": cty.NumberIntVal(4)}),
		})
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.NumberIntVal(5)))
	})

	t.Run("kwargs after omitted defaults", func(t *testing.T) {
		v, err := funcs["solve"].Call([]cty.Value{
			cty.NumberIntVal(1),
			cty.ObjectVal(map[string]cty.Value{"tol": cty.NumberIntVal(4)}),
		})
		require.NoError(t, err)
		assert.True(t, v.RawEquals(cty.NumberIntVal(11)), "maxiter keeps its default")
	})

	t.Run("arity errors", func(t *testing.T) {
		_, err := funcs["Reynolds"].Call([]cty.Value{cty.NumberIntVal(1)})
		require.ErrorContains(t, err, `missing argument "V"`)
		_, err = funcs["scaled"].Call([]cty.Value{cty.NumberIntVal(1), cty.NumberIntVal(1), cty.NumberIntVal(1)})
		require.ErrorContains(t, err, "takes 2 arguments")
	})
}

func TestKwargsObjectInRequiredSlotIsPositional(t *testing.T) {
	_, funcs := bindAll(t, `
function "pick" {
  params = [opts]
  kwargs = true
  result = opts.a
}
`)
	v, err := funcs["pick"].Call([]cty.Value{cty.ObjectVal(map[string]cty.Value{"a": cty.NumberIntVal(3)})})
	require.NoError(t, err)
	assert.True(t, v.RawEquals(cty.NumberIntVal(3)))
}

func TestFuncCallEvaluatesOneBranch(t *testing.T) {
	// --- Arrange ---
	_, funcs := bindAll(t, `
function "fact" {
  params   = [n, acc]
  defaults = { acc = null }
  result   = n <= 1 ? 1 : n * fact(n - 1)
}

function "guarded" {
  params = [x]
  result = x == null ? 0 : (x > 0 ? x : -x)
}
`)

	// --- Act ---
	fact, err := funcs["fact"].Call([]cty.Value{cty.NumberIntVal(5)})
	require.NoError(t, err)
	zero, err := funcs["guarded"].Call([]cty.Value{cty.NullVal(cty.Number)})
	require.NoError(t, err)
	neg, err := funcs["guarded"].Call([]cty.Value{cty.NumberIntVal(-4)})
	require.NoError(t, err)

	// --- Assert ---
	assert.True(t, fact.RawEquals(cty.NumberIntVal(120)))
	assert.True(t, zero.RawEquals(cty.NumberIntVal(0)))
	assert.True(t, neg.RawEquals(cty.NumberIntVal(4)))
}

func TestConditionalErrors(t *testing.T) {
	_, funcs := bindAll(t, `
function "f" {
  params = [c]
  result = c ? 1 : 2
}
`)
	_, err := funcs["f"].Call([]cty.Value{cty.NullVal(cty.Bool)})
	require.ErrorContains(t, err, "Null condition")
	_, err = funcs["f"].Call([]cty.Value{cty.StringVal("maybe")})
	require.ErrorContains(t, err, "Incorrect condition type")
}

func TestLazifyLeavesDefinitionUntouched(t *testing.T) {
	f, err := Parse("mod.hcl", []byte(`
function "f" {
  params = [x]
  result = 1 + (x > 0 ? x : 0)
}
`))
	require.NoError(t, err)
	def := f.Functions[0]
	Bind(def, scope.New())

	names, _ := def.Refs()
	assert.Equal(t, []string{}, names)
	_, ok := def.Result.(*hclsyntax.BinaryOpExpr)
	assert.True(t, ok)
}

func TestFuncCallWrapsCalleeErrors(t *testing.T) {
	sentinel := errors.New("did not converge")
	tbl, funcs := bindAll(t, `
function "outer" {
  params  = [x]
  result  = boom(x)
  on_fail = "outer gave up at ${x}"
}
`)
	tbl.Set("boom", failing{err: sentinel})

	_, err := funcs["outer"].Call([]cty.Value{cty.NumberIntVal(7)})
	require.Error(t, err)
	require.ErrorIs(t, err, sentinel)
	require.Contains(t, err.Error(), "outer gave up at 7")
}

func TestRefs(t *testing.T) {
	f, err := Parse("mod.hcl", []byte(`
function "f" {
  params   = [x, n]
  defaults = { n = limit }
  result   = g(x) + table[0] + sqrt(x)
}
`))
	require.NoError(t, err)
	names, calls := f.Functions[0].Refs()
	assert.Equal(t, []string{"limit", "table"}, names)
	assert.Equal(t, []string{"g", "sqrt"}, calls)

	// Cached.
	names2, _ := f.Functions[0].Refs()
	assert.Equal(t, names, names2)
}
