package app

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/xyproto/env/v2"
)

// Environment variables that override configuration.
const (
	EnvLogLevel       = "ACCELGRID_LOG_LEVEL"
	EnvLogFormat      = "ACCELGRID_LOG_FORMAT"
	EnvCatalogue      = "ACCELGRID_CATALOGUE"
	EnvCache          = "ACCELGRID_CACHE"
	EnvSolverVariants = "ACCELGRID_SOLVER_VARIANTS"
	EnvVectorize      = "ACCELGRID_VECTORIZE"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// CataloguePath is a .yaml, .yml or .hcl catalogue file. Empty selects
	// the bundled fluids catalogue.
	CataloguePath string

	LogFormat string
	LogLevel  string

	// These switch catalogue options on; they never switch them off.
	Cache          bool
	SolverVariants bool
	Vectorize      bool
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	var errs []string
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	if cfg.CataloguePath != "" {
		switch strings.ToLower(path.Ext(cfg.CataloguePath)) {
		case ".yaml", ".yml", ".hcl":
		default:
			errs = append(errs, fmt.Sprintf("catalogue %q: must be a .yaml, .yml or .hcl file", cfg.CataloguePath))
		}
	}
	if len(errs) > 0 {
		return nil, errors.New("invalid configuration:\n- " + strings.Join(errs, "\n- "))
	}
	return &cfg, nil
}

// ApplyEnv overrides fields of cfg with any ACCELGRID_* variables that are
// set in the environment. The environment is re-read on every call.
func ApplyEnv(cfg Config) Config {
	env.Load()
	if env.Has(EnvLogLevel) {
		cfg.LogLevel = strings.ToLower(env.Str(EnvLogLevel))
	}
	if env.Has(EnvLogFormat) {
		cfg.LogFormat = strings.ToLower(env.Str(EnvLogFormat))
	}
	if env.Has(EnvCatalogue) {
		cfg.CataloguePath = env.Str(EnvCatalogue)
	}
	if env.Has(EnvCache) {
		cfg.Cache = env.Bool(EnvCache)
	}
	if env.Has(EnvSolverVariants) {
		cfg.SolverVariants = env.Bool(EnvSolverVariants)
	}
	if env.Has(EnvVectorize) {
		cfg.Vectorize = env.Bool(EnvVectorize)
	}
	return cfg
}
