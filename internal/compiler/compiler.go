package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/accelgrid/internal/ctxlog"
	"github.com/vk/accelgrid/internal/faults"
	"github.com/vk/accelgrid/internal/script"
	"github.com/zclconf/go-cty/cty"
)

// ErrUnsupported is returned by the native path for constructs it cannot
// compile. It never escapes Compile or Vectorize: such functions fall back.
var ErrUnsupported = errors.New("unsupported by the native backend")

// Options control a single compilation.
type Options struct {
	// Cache allows reuse of previously compiled programs. It is off unless
	// asked for: by default every run compiles from scratch and nothing
	// carries over between runs. Turning it on departs from that policy and
	// is an explicit opt-in through the catalogue options or --cache.
	Cache bool
	// ForceFallback skips the native attempt.
	ForceFallback bool
}

// Backend is the acceleration backend as seen by the pipeline.
type Backend interface {
	Compile(ctx context.Context, fn *script.Func, opts Options) (*Function, error)
	Vectorize(ctx context.Context, fn *script.Func, opts Options) (*Function, error)
}

// Compiler is the built-in Backend.
type Compiler struct {
	mu        sync.Mutex
	artifacts map[string]*program
	hits      int
}

// New creates a compiler with an empty artifact cache.
func New() *Compiler {
	return &Compiler{artifacts: make(map[string]*program)}
}

// Compile compiles fn for scalar arguments.
func (c *Compiler) Compile(ctx context.Context, fn *script.Func, opts Options) (*Function, error) {
	return c.build(ctx, fn, opts, Scalar)
}

// Vectorize compiles fn for element-wise application over arrays.
func (c *Compiler) Vectorize(ctx context.Context, fn *script.Func, opts Options) (*Function, error) {
	return c.build(ctx, fn, opts, Vectorized)
}

// CacheHits returns how many compilations were served from the cache.
func (c *Compiler) CacheHits() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits
}

func (c *Compiler) build(ctx context.Context, fn *script.Func, opts Options, shape Shape) (*Function, error) {
	logger := ctxlog.FromContext(ctx).With("function", fn.Name(), "shape", shape.String())
	def := fn.Definition()
	if err := checkDefinition(def); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", faults.ErrCompilation, fn.Name(), err)
	}

	out := &Function{
		name:   fn.Name(),
		shape:  shape,
		cache:  opts.Cache,
		source: fn,
	}

	var prog *program
	if !opts.ForceFallback && def.Mode != script.ModeFallback {
		p, err := c.program(def, opts.Cache)
		switch {
		case err == nil:
			prog = p
		case errors.Is(err, ErrUnsupported):
			logger.Debug("Native compilation unavailable, using fallback mode.", "reason", err)
		default:
			return nil, fmt.Errorf("%w: %s: %v", faults.ErrCompilation, fn.Name(), err)
		}
	}

	if prog != nil {
		out.mode = Native
		out.scope = fn.Globals().Clone()
		private := out.scope
		out.call = func(args []cty.Value) (cty.Value, error) {
			return prog.run(private, args)
		}
	} else {
		out.mode = Fallback
		out.call = fn.Call
	}
	if shape == Vectorized {
		out.call = vectorize(out.name, out.call)
	}
	if out.scope != nil {
		// Recursive calls stay native.
		out.scope.Set(out.name, out)
	}

	logger.Debug("Function compiled.", "mode", out.mode.String(), "cache", opts.Cache)
	return out, nil
}

// program returns the native program for def, from the cache if allowed.
func (c *Compiler) program(def *script.Definition, useCache bool) (*program, error) {
	if !useCache {
		return compileProgram(def)
	}
	sum := sha256.Sum256(append([]byte(def.Name+"\x00"), def.Source...))
	key := hex.EncodeToString(sum[:])

	c.mu.Lock()
	if p, ok := c.artifacts[key]; ok {
		c.hits++
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	p, err := compileProgram(def)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.artifacts[key] = p
	c.mu.Unlock()
	return p, nil
}

// checkDefinition rejects definitions that cannot run in any mode.
func checkDefinition(def *script.Definition) error {
	if def.Result == nil {
		return fmt.Errorf("function has no body")
	}
	seen := make(map[string]bool, len(def.Params))
	for _, p := range def.Params {
		if !hclsyntax.ValidIdentifier(p) {
			return fmt.Errorf("parameter %q is not a valid identifier", p)
		}
		if seen[p] {
			return fmt.Errorf("duplicate parameter %q", p)
		}
		if def.Kwargs && p == script.KwargsName {
			return fmt.Errorf("parameter %q collides with keyword capture", p)
		}
		seen[p] = true
	}
	return nil
}
