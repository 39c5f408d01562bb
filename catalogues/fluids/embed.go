// Package fluids bundles a small fluid-mechanics library as a catalogue:
// shared numerics, dimensionless numbers and friction factor correlations.
package fluids

import (
	"context"
	"embed"

	"github.com/vk/accelgrid/internal/config"
	"github.com/vk/accelgrid/internal/manifest"
)

// Manifest is the path of the YAML catalogue inside FS. The same catalogue
// is also available in HCL form as catalogue.hcl.
const Manifest = "catalogue.yaml"

// FS holds the catalogue and the module sources.
//
//go:embed catalogue.yaml *.hcl
var FS embed.FS

// Load reads the bundled catalogue.
func Load(ctx context.Context) (*config.Catalogue, error) {
	return manifest.NewLoader().Load(ctx, FS, Manifest)
}
