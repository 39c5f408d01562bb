package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/accelgrid/catalogues/fluids"
	"github.com/vk/accelgrid/internal/config"
	"github.com/vk/accelgrid/internal/ctxlog"
	"github.com/vk/accelgrid/internal/hcl_adapter"
	"github.com/vk/accelgrid/internal/manifest"
	"github.com/vk/accelgrid/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	registry  *registry.Registry
	catalogue *config.Catalogue
	// fsys holds the catalogue and module sources; manifestPath is the
	// catalogue's path inside it.
	fsys         fs.FS
	manifestPath string
}

// NewApp loads the configured catalogue and registers the host builtins.
// Results are written to outW and logs to logW. Without modules the core
// builtin modules are used.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	fsys, manifestPath, loader := openCatalogue(cfg.CataloguePath)
	cat, err := loader.Load(ctx, fsys, manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalogue: %w", err)
	}
	cat.Options.Cache = cat.Options.Cache || cfg.Cache
	cat.Options.SolverVariants = cat.Options.SolverVariants || cfg.SolverVariants
	cat.Options.Vectorize = cat.Options.Vectorize || cfg.Vectorize
	logger.Debug("Catalogue loaded.", "name", cat.Name, "options", fmt.Sprintf("%+v", cat.Options))

	if len(modules) == 0 {
		modules = coreModules
	}
	reg := registry.Load(modules...)
	if err := reg.Validate(ctx); err != nil {
		return nil, err
	}
	logger.Debug("Builtin modules registered.", "modules", len(modules), "builtins", reg.Len())

	return &App{
		outW:         outW,
		logger:       logger,
		config:       cfg,
		registry:     reg,
		catalogue:    cat,
		fsys:         fsys,
		manifestPath: manifestPath,
	}, nil
}

// openCatalogue picks the file system and loader for a catalogue path.
func openCatalogue(p string) (fs.FS, string, config.Loader) {
	if p == "" {
		return fluids.FS, fluids.Manifest, manifest.NewLoader()
	}
	fsys := os.DirFS(filepath.Dir(p))
	name := filepath.Base(p)
	if strings.EqualFold(filepath.Ext(p), ".hcl") {
		return fsys, name, hcl_adapter.NewLoader()
	}
	return fsys, name, manifest.NewLoader()
}

// Registry returns the application's builtin registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// Catalogue returns the loaded catalogue.
func (a *App) Catalogue() *config.Catalogue {
	return a.catalogue
}
