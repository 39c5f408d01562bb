package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/accelgrid/internal/faults"
	"github.com/vk/accelgrid/internal/pipeline"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/zclconf/go-cty/cty"
)

func TestNewConfig(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
		want []string
	}{
		{name: "defaults", cfg: Config{LogFormat: "text"}},
		{name: "json and debug", cfg: Config{LogFormat: "json", LogLevel: "debug", CataloguePath: "lib/catalogue.yml"}},
		{name: "hcl catalogue", cfg: Config{LogFormat: "text", CataloguePath: "catalogue.HCL"}},
		{
			name: "everything wrong",
			cfg:  Config{LogFormat: "xml", LogLevel: "loud", CataloguePath: "catalogue.toml"},
			want: []string{`invalid log level "loud"`, `invalid log format "xml"`, `catalogue "catalogue.toml"`},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := NewConfig(tc.cfg)
			if len(tc.want) == 0 {
				require.NoError(t, err)
				assert.Equal(t, tc.cfg, *cfg)
				return
			}
			require.Error(t, err)
			assert.Nil(t, cfg)
			for _, w := range tc.want {
				assert.Contains(t, err.Error(), w)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvCatalogue, "other/catalogue.hcl")
	t.Setenv(EnvCache, "true")
	t.Setenv(EnvVectorize, "false")

	cfg := ApplyEnv(Config{LogLevel: "info", LogFormat: "text", Vectorize: true, SolverVariants: true})

	assert.Equal(t, Config{
		CataloguePath:  "other/catalogue.hcl",
		LogFormat:      "json",
		LogLevel:       "debug",
		Cache:          true,
		SolverVariants: true,
		Vectorize:      false,
	}, cfg)
}

func TestApplyEnvLeavesUnsetFields(t *testing.T) {
	for _, name := range []string{EnvLogLevel, EnvLogFormat, EnvCatalogue, EnvCache, EnvSolverVariants, EnvVectorize} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	in := Config{LogLevel: "warn", LogFormat: "text", Cache: true}
	assert.Equal(t, in, ApplyEnv(in))
}

func TestApplyEnvSeesLaterChanges(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	require.Equal(t, "debug", ApplyEnv(Config{LogLevel: "info"}).LogLevel)

	require.NoError(t, os.Unsetenv(EnvLogLevel))
	assert.Equal(t, "info", ApplyEnv(Config{LogLevel: "info"}).LogLevel)

	t.Setenv(EnvLogLevel, "warn")
	assert.Equal(t, "warn", ApplyEnv(Config{LogLevel: "info"}).LogLevel)
}

func TestList(t *testing.T) {
	// --- Arrange ---
	a, out, _ := SetupAppTest(t, Config{})

	// --- Act ---
	err := a.List(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Greater(t, len(lines), 1)
	assert.Regexp(t, `^NAME\s+MODULE\s+KIND$`, lines[0])
	assert.Regexp(t, `(?m)^Clamond\s+fluids\.friction\s+function \(native, scalar\)$`, out.String())
	assert.Regexp(t, `(?m)^Reynolds\s+fluids\.core\s+function \(fallback, scalar\)$`, out.String())
	assert.Regexp(t, `(?m)^roughness_table\s+fluids\.friction\s+dense\.Array\(real\[3 2\]\)$`, out.String())
}

func TestCall(t *testing.T) {
	a, out, _ := SetupAppTest(t, Config{})

	err := a.Call(context.Background(), "friction_laminar", []string{"2000"})

	require.NoError(t, err)
	assert.Equal(t, "0.032\n", out.String())
}

func TestCallPrintsShortestNumber(t *testing.T) {
	a, out, _ := SetupAppTest(t, Config{})

	require.NoError(t, a.Call(context.Background(), "P_from_head", []string{"10", "1000"}))

	assert.Equal(t, "98066.5\n", out.String())
}

func TestFormatValue(t *testing.T) {
	third, err := parseArg("1 / 3")
	require.NoError(t, err)

	testCases := []struct {
		name string
		in   cty.Value
		want string
	}{
		{name: "exact decimal", in: cty.NumberFloatVal(98066.5), want: "98066.5"},
		{name: "full precision division", in: third, want: "0.3333333333333333"},
		{name: "large", in: cty.NumberFloatVal(1e21), want: "1e+21"},
		{name: "list", in: cty.ListVal([]cty.Value{cty.NumberIntVal(1), cty.NumberFloatVal(2.5)}), want: "[1, 2.5]"},
		{name: "nested tuple", in: cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.ListValEmpty(cty.Number)}), want: `["a", []]`},
		{name: "object", in: cty.ObjectVal(map[string]cty.Value{"x": cty.NumberIntVal(2)}), want: "{ x = 2 }"},
		{name: "string", in: cty.StringVal("steel"), want: `"steel"`},
		{name: "bool", in: cty.True, want: "true"},
		{name: "null", in: cty.NullVal(cty.Number), want: "null"},
		{name: "unknown", in: cty.UnknownVal(cty.Number), want: "<unknown>"},
		{name: "function", in: symbol.FuncVal(fakeCallable{}), want: "<function>"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatValue(tc.in))
		})
	}
}

type fakeCallable struct{}

func (fakeCallable) Name() string                          { return "fake" }
func (fakeCallable) Call(_ []cty.Value) (cty.Value, error) { return cty.NilVal, nil }

func TestCallErrors(t *testing.T) {
	testCases := []struct {
		name string
		fn   string
		args []string
		want string
	}{
		{name: "bad argument", fn: "friction_laminar", args: []string{"1 +"}, want: "argument 1"},
		{name: "variable argument", fn: "friction_laminar", args: []string{"Re"}, want: "argument 1"},
		{name: "unknown function", fn: "nope", want: "call to nope failed"},
		{name: "wrong arity", fn: "friction_laminar", args: []string{"1", "2"}, want: "call to friction_laminar failed"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, out, _ := SetupAppTest(t, Config{})
			err := a.Call(context.Background(), tc.fn, tc.args)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
			assert.Empty(t, out.String())
		})
	}
}

func TestCheck(t *testing.T) {
	a, out, logs := SetupAppTest(t, Config{SolverVariants: true})

	err := a.Check(context.Background())

	require.NoError(t, err)
	assert.Contains(t, out.String(), `catalogue "fluids": 3 modules`)
	assert.Contains(t, out.String(), "native/scalar")
	assert.NotContains(t, logs.String(), "not part of the catalogue")
}

func writeCatalogue(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	return dir
}

const gridCatalogue = `
name: grid
submodules:
  - id: grid.cells
    source: cells.hcl
`

const cellsSrc = `
exports = ["grid", "cell"]
grid = [[1, 2], [3, 4]]

function "cell" {
  params = [i, j]
  result = grid[i][j]
}
`

func TestCheckWarnsAboutUnusedFiles(t *testing.T) {
	dir := writeCatalogue(t, map[string]string{
		"catalogue.yaml": gridCatalogue,
		"cells.hcl":      cellsSrc,
		"stray.hcl":      `x = 1`,
	})
	a, out, logs := SetupAppTest(t, Config{CataloguePath: filepath.Join(dir, "catalogue.yaml")})

	require.NoError(t, a.Check(context.Background()))

	assert.Contains(t, out.String(), `catalogue "grid": 1 modules, 2 published names, 1 compiled functions`)
	assert.Contains(t, logs.String(), "file=stray.hcl")
	assert.NotContains(t, logs.String(), "file=cells.hcl")
}

func TestCallOnDiskCatalogue(t *testing.T) {
	dir := writeCatalogue(t, map[string]string{"catalogue.yaml": gridCatalogue, "cells.hcl": cellsSrc})
	a, out, _ := SetupAppTest(t, Config{CataloguePath: filepath.Join(dir, "catalogue.yaml")})

	require.NoError(t, a.Call(context.Background(), "cell", []string{"1", "0"}))

	assert.Equal(t, "3\n", out.String())
}

func TestCallOnHCLCatalogue(t *testing.T) {
	dir := writeCatalogue(t, map[string]string{
		"catalogue.hcl": "name = \"grid\"\n\noptions {\n  cache = true\n}\n\nsubmodule \"grid.cells\" {\n  source = \"cells.hcl\"\n}\n",
		"cells.hcl":     cellsSrc,
	})
	a, out, _ := SetupAppTest(t, Config{CataloguePath: filepath.Join(dir, "catalogue.hcl")})

	require.NoError(t, a.Call(context.Background(), "cell", []string{"0", "1"}))

	assert.Equal(t, "2\n", out.String())
	assert.True(t, a.Catalogue().Options.Cache)
}

func TestNewAppErrors(t *testing.T) {
	cfg, err := NewConfig(Config{LogFormat: "text", CataloguePath: filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)

	a, err := NewApp(&SafeBuffer{}, &SafeBuffer{}, cfg)

	require.Error(t, err)
	assert.Nil(t, a)
	assert.Contains(t, err.Error(), "failed to load catalogue")
}

func TestTransformError(t *testing.T) {
	dir := writeCatalogue(t, map[string]string{
		"catalogue.yaml": gridCatalogue,
		"cells.hcl":      `x = missing + 1`,
	})
	a, _, _ := SetupAppTest(t, Config{CataloguePath: filepath.Join(dir, "catalogue.yaml")})

	_, err := a.Transform(context.Background())

	var perr *pipeline.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, pipeline.StageLoad, perr.Stage)
	assert.ErrorIs(t, err, faults.ErrExecution)
}
