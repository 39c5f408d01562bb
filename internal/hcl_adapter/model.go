package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode every top-level item of a catalogue.
type fileRoot struct {
	Name       string       `hcl:"name,optional"`
	Options    *Options     `hcl:"options,block"`
	Submodules []*Submodule `hcl:"submodule,block"`
	Rewrites   []*Rewrite   `hcl:"rewrite,block"`
	Aliases    []*Alias     `hcl:"alias,block"`
	Remain     hcl.Body     `hcl:",remain"`
}

// Options is the HCL representation of an `options` block.
type Options struct {
	Vectorize      bool `hcl:"vectorize,optional"`
	Cache          bool `hcl:"cache,optional"`
	SolverVariants bool `hcl:"solver_variants,optional"`
}

// Submodule is the HCL representation of a `submodule` block.
type Submodule struct {
	ID            string   `hcl:"id,label"`
	Source        string   `hcl:"source"`
	Requires      []string `hcl:"requires,optional"`
	Exports       []string `hcl:"exports,optional"`
	Internal      []string `hcl:"internal,optional"`
	ForceFallback []string `hcl:"force_fallback,optional"`
}

// Rewrite is the HCL representation of a `rewrite` block.
type Rewrite struct {
	Module     string  `hcl:"module,label"`
	Function   string  `hcl:"function,label"`
	Idempotent bool    `hcl:"idempotent,optional"`
	Rules      []*Rule `hcl:"rule,block"`
}

// Rule is the HCL representation of a `rule` block.
type Rule struct {
	Match   string `hcl:"match"`
	Replace string `hcl:"replace"`
}

// Alias is the HCL representation of an `alias` block.
type Alias struct {
	Name    string   `hcl:"name,label"`
	Target  string   `hcl:"target"`
	Modules []string `hcl:"modules,optional"`
}
