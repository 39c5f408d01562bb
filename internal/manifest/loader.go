// Package manifest reads catalogues from YAML files. It is the YAML
// implementation of config.Loader.
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"

	"github.com/vk/accelgrid/internal/config"
	"github.com/vk/accelgrid/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML catalogue loader.
func NewLoader() *Loader {
	return &Loader{}
}

type document struct {
	Name       string      `yaml:"name"`
	Options    options     `yaml:"options"`
	Submodules []submodule `yaml:"submodules"`
	Rewrites   []rewrite   `yaml:"rewrites"`
	Aliases    []alias     `yaml:"aliases"`
}

type options struct {
	Vectorize      bool `yaml:"vectorize"`
	Cache          bool `yaml:"cache"`
	SolverVariants bool `yaml:"solver_variants"`
}

type submodule struct {
	ID            string   `yaml:"id"`
	Source        string   `yaml:"source"`
	Requires      []string `yaml:"requires"`
	Exports       []string `yaml:"exports"`
	Internal      []string `yaml:"internal"`
	ForceFallback []string `yaml:"force_fallback"`
}

type rewrite struct {
	Module     string `yaml:"module"`
	Function   string `yaml:"function"`
	Idempotent bool   `yaml:"idempotent"`
	Rules      []rule `yaml:"rules"`
}

type rule struct {
	Match   string `yaml:"match"`
	Replace string `yaml:"replace"`
}

type alias struct {
	Name    string   `yaml:"name"`
	Target  string   `yaml:"target"`
	Modules []string `yaml:"modules"`
}

// Load reads and validates the catalogue at p.
func (l *Loader) Load(ctx context.Context, fsys fs.FS, p string) (*config.Catalogue, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML catalogue loader started.", "path", p)

	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalogue %s: %w", p, err)
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode catalogue %s: %w", p, err)
	}

	cat := translate(&doc, path.Dir(p))
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalogue %s: %w", p, err)
	}

	logger.Debug("Catalogue loaded.", "name", cat.Name, "submodules", len(cat.Submodules),
		"rewrites", len(cat.Rewrites), "aliases", len(cat.Aliases))
	return cat, nil
}

// translate converts the decoded document into the format-agnostic model.
// Source paths are made relative to the root of the file system.
func translate(doc *document, dir string) *config.Catalogue {
	cat := &config.Catalogue{
		Name: doc.Name,
		Options: config.Options{
			Vectorize:      doc.Options.Vectorize,
			Cache:          doc.Options.Cache,
			SolverVariants: doc.Options.SolverVariants,
		},
	}
	for _, s := range doc.Submodules {
		src := s.Source
		if src != "" {
			src = path.Join(dir, src)
		}
		cat.Submodules = append(cat.Submodules, &config.Submodule{
			ID:            s.ID,
			Source:        src,
			Requires:      s.Requires,
			Exports:       s.Exports,
			Internal:      s.Internal,
			ForceFallback: s.ForceFallback,
		})
	}
	for _, r := range doc.Rewrites {
		rw := &config.Rewrite{Module: r.Module, Function: r.Function, Idempotent: r.Idempotent}
		for _, ru := range r.Rules {
			rw.Rules = append(rw.Rules, config.Rule{Match: ru.Match, Replace: ru.Replace})
		}
		cat.Rewrites = append(cat.Rewrites, rw)
	}
	for _, a := range doc.Aliases {
		cat.Aliases = append(cat.Aliases, &config.Alias{Name: a.Name, Target: a.Target, Modules: a.Modules})
	}
	return cat
}
