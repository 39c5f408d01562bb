package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validCatalogue() *Catalogue {
	return &Catalogue{
		Name: "lib",
		Submodules: []*Submodule{
			{ID: "lib.a", Source: "a.hcl", Exports: []string{"f"}},
			{ID: "lib.b", Source: "b.hcl", Requires: []string{"lib.a"}},
		},
		Rewrites: []*Rewrite{
			{Module: "lib.a", Function: "f", Rules: []Rule{{Match: "x", Replace: "y"}}},
			{Module: "lib.b", Function: "g", Rules: []Rule{{Match: "x", Replace: "y"}}},
		},
		Aliases: []*Alias{{Name: "h", Target: "f", Modules: []string{"lib.b"}}},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validCatalogue().Validate())

	testCases := []struct {
		name   string
		mutate func(c *Catalogue)
		want   string
	}{
		{name: "no submodules", mutate: func(c *Catalogue) { c.Submodules = nil }, want: "declares no submodules"},
		{name: "duplicate id", mutate: func(c *Catalogue) { c.Submodules[1].ID = "lib.a" }, want: "declared more than once"},
		{name: "missing source", mutate: func(c *Catalogue) { c.Submodules[0].Source = "" }, want: "missing source"},
		{name: "escaping source", mutate: func(c *Catalogue) { c.Submodules[0].Source = "../a.hcl" }, want: "relative slash-separated path"},
		{name: "bad export", mutate: func(c *Catalogue) { c.Submodules[0].Exports = []string{"1f"} }, want: "'1f' is not a valid name"},
		{name: "unknown require", mutate: func(c *Catalogue) { c.Submodules[1].Requires = []string{"lib.z"} }, want: "requires unknown submodule 'lib.z'"},
		{name: "self require", mutate: func(c *Catalogue) { c.Submodules[0].Requires = []string{"lib.a"} }, want: "requires itself"},
		{name: "rewrite unknown module", mutate: func(c *Catalogue) { c.Rewrites[0].Module = "lib.z" }, want: "unknown submodule 'lib.z'"},
		{name: "rewrite empty match", mutate: func(c *Catalogue) { c.Rewrites[0].Rules[0].Match = "" }, want: "empty match"},
		{name: "alias self", mutate: func(c *Catalogue) { c.Aliases[0].Target = "h" }, want: "aliases itself"},
		{name: "alias unknown module", mutate: func(c *Catalogue) { c.Aliases[0].Modules = []string{"x"} }, want: "unknown submodule 'x'"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := validCatalogue()
			tc.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLookups(t *testing.T) {
	c := validCatalogue()

	s, ok := c.Submodule("lib.b")
	require.True(t, ok)
	require.Equal(t, "b.hcl", s.Source)
	_, ok = c.Submodule("lib.z")
	require.False(t, ok)

	rws := c.RewritesFor("lib.a")
	require.Len(t, rws, 1)
	require.Equal(t, "f", rws[0].Function)
	require.Empty(t, c.RewritesFor("lib.z"))
}
