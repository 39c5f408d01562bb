package materialize

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/accelgrid/internal/config"
	"github.com/vk/accelgrid/internal/dense"
	"github.com/vk/accelgrid/internal/faults"
	"github.com/vk/accelgrid/internal/snapshot"
	"github.com/zclconf/go-cty/cty"
)

const tablesSrc = `
exports = ["grid", "coeffs", "ragged", "mixed", "counts", "label", "derived", "negatives"]

grid      = [[1, 2], [3, 4]]
coeffs    = [0.5, 1e-3, 2.0]
ragged    = [[1, 2], [3]]
mixed     = [1, 2.5]
counts    = [3, 1, 4]
label     = "not a table"
derived   = [counts[0], 2]
negatives = [-1.5, -2.25]
`

func load(t *testing.T, src string) *snapshot.Snapshot {
	t.Helper()
	files := fstest.MapFS{"tables.hcl": {Data: []byte(src)}}
	cat := &config.Catalogue{Name: "lib", Submodules: []*config.Submodule{{ID: "lib.tables", Source: "tables.hcl"}}}
	snap, err := snapshot.NewLoader(files, cat, nil).Load(context.Background(), "lib.tables")
	require.NoError(t, err)
	return snap
}

func TestMaterialize(t *testing.T) {
	// --- Arrange ---
	snap := load(t, tablesSrc)

	// --- Act ---
	arrays, order, err := Materialize(context.Background(), snap)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{"grid", "coeffs", "counts", "negatives"}, order)
	require.Len(t, arrays, 4)

	grid := arrays["grid"]
	assert.Equal(t, dense.Integer, grid.Kind())
	assert.Equal(t, []int{2, 2}, grid.Shape())
	assert.Equal(t, []float64{1, 2, 3, 4}, grid.Data())
	v, err := grid.At(1, 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	coeffs := arrays["coeffs"]
	assert.Equal(t, dense.Real, coeffs.Kind())
	assert.Equal(t, []float64{0.5, 1e-3, 2.0}, coeffs.Data())

	assert.Equal(t, dense.Integer, arrays["counts"].Kind())
	assert.Equal(t, []float64{-1.5, -2.25}, arrays["negatives"].Data())

	obj, ok := snap.Table.Get("grid")
	require.True(t, ok)
	assert.Same(t, grid, obj)

	for _, name := range []string{"ragged", "mixed", "label", "derived"} {
		obj, ok := snap.Table.Get(name)
		require.True(t, ok, name)
		_, isValue := obj.(cty.Value)
		assert.True(t, isValue, "%s must pass through unchanged", name)
	}
}

func TestMaterializeFailures(t *testing.T) {
	testCases := []struct {
		name string
		src  string
	}{
		{name: "string after numbers", src: `bad = [1, 2, "three"]`},
		{name: "string in a later row", src: `bad = [[1, 2], [3, "x"]]`},
		{name: "scalar row", src: `bad = [[1, 2], 3]`},
		{name: "integer beyond float64 precision", src: `bad = [1, 9007199254740993]`},
		{name: "negative integer beyond float64 precision", src: `bad = [[1, 2], [-9007199254740993, 4]]`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			snap := load(t, tc.src)
			arrays, _, err := Materialize(context.Background(), snap)
			require.Error(t, err)
			assert.Nil(t, arrays)
			assert.True(t, errors.Is(err, faults.ErrMaterialization))
			assert.ErrorContains(t, err, `attribute "bad"`)
		})
	}
}

func TestMaterializeLargestExactInteger(t *testing.T) {
	snap := load(t, `edges = [-9007199254740992, 0, 9007199254740992]`)

	arrays, _, err := Materialize(context.Background(), snap)

	require.NoError(t, err)
	require.Contains(t, arrays, "edges")
	assert.Equal(t, []float64{-9007199254740992, 0, 9007199254740992}, arrays["edges"].Data())
}

func TestMaterializeIgnoresNonLiterals(t *testing.T) {
	snap := load(t, `
base  = 2
empty = []
made  = [for x in [1, 2] : x * base]
`)
	arrays, order, err := Materialize(context.Background(), snap)
	require.NoError(t, err)
	assert.Empty(t, arrays)
	assert.Empty(t, order)
}
