package hcl_adapter

import (
	"context"
	"fmt"
	"io/fs"
	"path"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/accelgrid/internal/config"
	"github.com/vk/accelgrid/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL catalogue loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses, decodes and validates the catalogue at p.
func (l *Loader) Load(ctx context.Context, fsys fs.FS, p string) (*config.Catalogue, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL catalogue loader started.", "path", p)

	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue %s: %w", p, err)
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, p)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", p, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", p, diags)
	}
	if err := checkRemain(root.Remain); err != nil {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", p, err)
	}

	cat := translate(&root, path.Dir(p))
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalogue %s: %w", p, err)
	}

	logger.Debug("HCL loading complete.", "name", cat.Name, "submodules", len(cat.Submodules),
		"rewrites", len(cat.Rewrites), "aliases", len(cat.Aliases))
	return cat, nil
}

// checkRemain rejects any top-level attribute or block the catalogue schema
// does not know about. Items already decoded are hidden in the remain body.
func checkRemain(body hcl.Body) error {
	if body == nil {
		return nil
	}
	if _, diags := body.Content(&hcl.BodySchema{}); diags.HasErrors() {
		return diags
	}
	return nil
}

func translate(root *fileRoot, dir string) *config.Catalogue {
	cat := &config.Catalogue{Name: root.Name}
	if root.Options != nil {
		cat.Options = config.Options{
			Vectorize:      root.Options.Vectorize,
			Cache:          root.Options.Cache,
			SolverVariants: root.Options.SolverVariants,
		}
	}
	for _, s := range root.Submodules {
		cat.Submodules = append(cat.Submodules, &config.Submodule{
			ID:            s.ID,
			Source:        path.Join(dir, s.Source),
			Requires:      s.Requires,
			Exports:       s.Exports,
			Internal:      s.Internal,
			ForceFallback: s.ForceFallback,
		})
	}
	for _, r := range root.Rewrites {
		rw := &config.Rewrite{Module: r.Module, Function: r.Function, Idempotent: r.Idempotent}
		for _, ru := range r.Rules {
			rw.Rules = append(rw.Rules, config.Rule{Match: ru.Match, Replace: ru.Replace})
		}
		cat.Rewrites = append(cat.Rewrites, rw)
	}
	for _, a := range root.Aliases {
		cat.Aliases = append(cat.Aliases, &config.Alias{Name: a.Name, Target: a.Target, Modules: a.Modules})
	}
	return cat
}
