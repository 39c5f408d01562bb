package config

import (
	"context"
	"io/fs"
)

// Loader is the interface for a format-specific catalogue loader.
type Loader interface {
	// Load reads the catalogue at path inside fsys and translates it into
	// the format-agnostic model. Module sources named by the catalogue are
	// resolved relative to the catalogue's directory.
	Load(ctx context.Context, fsys fs.FS, path string) (*Catalogue, error)
}
