package rewrite

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/accelgrid/internal/config"
	"github.com/vk/accelgrid/internal/faults"
	"github.com/vk/accelgrid/internal/registry"
	"github.com/vk/accelgrid/internal/snapshot"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/vk/accelgrid/modules/mathfn"
	"github.com/vk/accelgrid/modules/solvers"
	"github.com/zclconf/go-cty/cty"
)

const numericsSrc = `
function "secant" {
  params = [f, x0, args, maxiter, xtol, ytol]
  defaults = { args = [], maxiter = 100, xtol = 1.48e-8, ytol = null }
  kwargs = true
  result = root_secant(f, x0, xtol, ytol, maxiter, args)
  on_fail = "secant failed after ${maxiter} iterations"

  variant "native" {
    params = [f, x0, args, maxiter, xtol, ytol]
    result = root_secant(f, x0, xtol, ytol, maxiter, args)
  }
}

function "_sq_residual" {
  params = [x, c]
  result = x * x - c
}

function "plain" {
  params = [x]
  result = sqrt(x)
}
`

var solverRules = []config.Rule{
	{Match: "kwargs = true", Replace: "kwargs = false"},
	{Match: "ytol = null", Replace: "ytol = 1e100"},
	{Match: ` after ${maxiter} iterations"`, Replace: `"`},
}

func loadNumerics(t *testing.T) *snapshot.Snapshot {
	t.Helper()
	cat := &config.Catalogue{Submodules: []*config.Submodule{{ID: "lib.numerics", Source: "numerics.hcl"}}}
	reg := registry.Load(&mathfn.Module{}, &solvers.Module{})
	l := snapshot.NewLoader(fstest.MapFS{"numerics.hcl": {Data: []byte(numericsSrc)}}, cat, reg)
	snap, err := l.Load(context.Background(), "lib.numerics")
	require.NoError(t, err)
	return snap
}

func TestApply(t *testing.T) {
	out, n := Apply("a, kwargs={}, b", []config.Rule{
		{Match: ", kwargs={}", Replace: ""},
		{Match: "missing", Replace: "x"},
		{Match: "b", Replace: "c"},
	})
	assert.Equal(t, "a, c", out)
	assert.Equal(t, 2, n)

	// Order matters: the second rule sees the output of the first.
	out, _ = Apply("x", []config.Rule{{Match: "x", Replace: "y"}, {Match: "y", Replace: "z"}})
	assert.Equal(t, "z", out)
}

func TestRewrite(t *testing.T) {
	// --- Arrange ---
	snap := loadNumerics(t)
	original, _ := snap.Table.Callable("secant")

	// --- Act ---
	fn, err := Rewrite(context.Background(), snap, "secant", solverRules, false)

	// --- Assert ---
	require.NoError(t, err)
	def := fn.Definition()
	assert.False(t, def.Kwargs)
	assert.NotContains(t, string(def.Source), "null")
	assert.NotContains(t, string(def.Source), "${maxiter}")

	installed, _ := snap.Table.Callable("secant")
	assert.Same(t, fn, installed)
	assert.NotSame(t, original, installed)

	residual, _ := snap.Table.Callable("_sq_residual")
	v, err := fn.Call([]cty.Value{
		symbol.FuncVal(residual), cty.NumberIntVal(1),
		cty.TupleVal([]cty.Value{cty.NumberIntVal(4)}),
	})
	require.NoError(t, err)
	got, _ := symbol.Float(v)
	assert.InDelta(t, 2.0, got, 1e-8)
}

func TestRewriteTwiceStartsFromRewrittenSource(t *testing.T) {
	snap := loadNumerics(t)
	_, err := Rewrite(context.Background(), snap, "secant", solverRules, false)
	require.NoError(t, err)

	_, err = Rewrite(context.Background(), snap, "secant", solverRules, false)
	require.ErrorIs(t, err, faults.ErrRewrite)

	_, err = Rewrite(context.Background(), snap, "secant", solverRules, true)
	require.NoError(t, err)
}

func TestRewriteErrors(t *testing.T) {
	testCases := []struct {
		name  string
		fn    string
		rules []config.Rule
		kind  error
		want  string
	}{
		{name: "no match", fn: "plain", rules: []config.Rule{{Match: "nothing", Replace: ""}}, kind: faults.ErrRewrite, want: "none of 1 rules matched"},
		{name: "syntax", fn: "plain", rules: []config.Rule{{Match: "result = ", Replace: "result = = "}}, kind: faults.ErrRewrite, want: "does not parse"},
		{name: "renamed", fn: "plain", rules: []config.Rule{{Match: `"plain"`, Replace: `"other"`}}, kind: faults.ErrRewrite, want: `defines "other"`},
		{name: "name error", fn: "plain", rules: []config.Rule{{Match: "sqrt", Replace: "cbrt"}}, kind: faults.ErrRewrite, want: "undefined names cbrt"},
		{name: "unknown function", fn: "nope", rules: solverRules, kind: faults.ErrResolution},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap := loadNumerics(t)
			before, _ := snap.Table.Get(tc.fn)

			_, err := Rewrite(context.Background(), snap, tc.fn, tc.rules, false)

			require.ErrorIs(t, err, tc.kind)
			if tc.want != "" {
				require.Contains(t, err.Error(), tc.want)
			}
			after, _ := snap.Table.Get(tc.fn)
			assert.Equal(t, before, after, "a failed rewrite leaves the table untouched")
		})
	}
}

func TestVariant(t *testing.T) {
	snap := loadNumerics(t)

	fn, err := Variant(context.Background(), snap, "secant", "native")
	require.NoError(t, err)
	assert.False(t, fn.Definition().Kwargs)
	assert.Nil(t, fn.Definition().OnFail)
	installed, _ := snap.Table.Callable("secant")
	assert.Same(t, fn, installed)

	_, err = Variant(context.Background(), snap, "plain", "native")
	require.ErrorIs(t, err, ErrNoVariant)
	require.ErrorIs(t, err, faults.ErrRewrite)
}
