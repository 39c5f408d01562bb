// Package pipeline runs the whole transformation of a catalogue: load every
// submodule into an isolated snapshot, rewrite or select variants for the
// allow-listed functions, compile the rest, materialize literal tables,
// rebind everything through a frozen ledger and publish the flat namespace.
//
// A run is all or nothing. The first failure stops it and is reported as a
// single *Error; no partial namespace is ever returned.
package pipeline

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/accelgrid/internal/compiler"
	"github.com/vk/accelgrid/internal/config"
	"github.com/vk/accelgrid/internal/ctxlog"
	"github.com/vk/accelgrid/internal/faults"
	"github.com/vk/accelgrid/internal/ledger"
	"github.com/vk/accelgrid/internal/materialize"
	"github.com/vk/accelgrid/internal/publish"
	"github.com/vk/accelgrid/internal/registry"
	"github.com/vk/accelgrid/internal/rewrite"
	"github.com/vk/accelgrid/internal/script"
	"github.com/vk/accelgrid/internal/snapshot"
)

// solverVariant is the variant label selected when solver variants are on.
const solverVariant = "native"

// Options configure a run.
type Options struct {
	// Backend compiles functions. Defaults to compiler.New().
	Backend compiler.Backend
	// Builtins are the host functions visible to every module and recorded
	// in the ledger before any module. May be nil.
	Builtins *registry.Registry
	// BeforeFreeze, if set, runs after every module has contributed to the
	// ledger and before it is frozen.
	BeforeFreeze func(l *ledger.Ledger) error
}

// Compiled is a compiled function and the module it came from.
type Compiled struct {
	Module   string
	Function *compiler.Function
}

// Result is the output of a successful run.
type Result struct {
	RunID     string
	Namespace *publish.Namespace
	View      *ledger.View
	Snapshots []*snapshot.Snapshot
	Functions []Compiled
}

// Run transforms cat, reading module sources from fsys.
func Run(ctx context.Context, cat *config.Catalogue, fsys fs.FS, opts Options) (*Result, error) {
	if opts.Backend == nil {
		opts.Backend = compiler.New()
	}
	runID := uuid.NewString()
	ctx = ctxlog.With(ctx, "run_id", runID)
	logger := ctxlog.FromContext(ctx)

	if err := cat.Validate(); err != nil {
		return nil, &Error{Stage: StageLoad, Err: fmt.Errorf("%w: %v", faults.ErrResolution, err)}
	}
	logger.Info("Pipeline started.", "catalogue", cat.Name, "submodules", len(cat.Submodules))

	r := &run{
		cat:    cat,
		opts:   opts,
		loader: snapshot.NewLoader(fsys, cat, opts.Builtins),
		ledger: ledger.New(),
	}
	if opts.Builtins != nil {
		for _, name := range opts.Builtins.Names() {
			b, _ := opts.Builtins.Lookup(name)
			r.ledger.Record(name, b)
		}
	}

	for _, sub := range cat.Submodules {
		if err := r.module(ctx, sub); err != nil {
			logger.Error("Pipeline failed.", "error", err)
			return nil, err
		}
	}

	view, err := r.rebind(ctx)
	if err != nil {
		logger.Error("Pipeline failed.", "error", err)
		return nil, err
	}

	ns, err := publish.Publish(r.snapshots, view)
	if err != nil {
		err = &Error{Stage: StagePublish, Err: err}
		logger.Error("Pipeline failed.", "error", err)
		return nil, err
	}

	logger.Info("Pipeline finished.", "published", ns.Len(), "compiled", len(r.functions), "ledger", view.Len())
	return &Result{
		RunID:     runID,
		Namespace: ns,
		View:      view,
		Snapshots: r.snapshots,
		Functions: r.functions,
	}, nil
}

// run is the state of one pipeline run.
type run struct {
	cat       *config.Catalogue
	opts      Options
	loader    *snapshot.Loader
	ledger    *ledger.Ledger
	snapshots []*snapshot.Snapshot
	functions []Compiled
}

// module takes one submodule through load, rewrite, compile and materialize,
// recording everything it produces.
func (r *run) module(ctx context.Context, sub *config.Submodule) error {
	logger := ctxlog.FromContext(ctx).With("module", sub.ID)

	snap, err := r.loader.Load(ctx, sub.ID)
	if err != nil {
		return &Error{Stage: StageLoad, Module: sub.ID, Err: err}
	}

	// Names the module received from builtins or required modules take
	// their current accelerated form.
	for _, name := range snap.Table.Names() {
		if snap.Defines(name) {
			continue
		}
		if obj, ok := r.ledger.Get(name); ok {
			snap.Table.Set(name, obj)
		}
	}

	for _, rw := range r.cat.RewritesFor(sub.ID) {
		if err := r.rewrite(ctx, snap, rw); err != nil {
			return &Error{Stage: StageRewrite, Module: sub.ID, Symbol: rw.Function, Err: err}
		}
	}

	compiled := 0
	for _, name := range snap.Names() {
		obj, _ := snap.Table.Get(name)
		fn, ok := obj.(*script.Func)
		if !ok || !snap.Defines(name) {
			r.ledger.Record(name, obj)
			continue
		}
		out, err := r.compile(ctx, sub, fn)
		if err != nil {
			return &Error{Stage: StageCompile, Module: sub.ID, Symbol: name, Err: err}
		}
		r.ledger.Record(name, out)
		r.functions = append(r.functions, Compiled{Module: sub.ID, Function: out})
		compiled++
	}

	arrays, order, err := materialize.Materialize(ctx, snap)
	if err != nil {
		return &Error{Stage: StageMaterialize, Module: sub.ID, Err: err}
	}
	for _, name := range order {
		r.ledger.Record(name, arrays[name])
	}

	r.snapshots = append(r.snapshots, snap)
	logger.Info("Module transformed.", "compiled", compiled, "arrays", len(order), "exports", len(snap.Exports))
	return nil
}

func (r *run) rewrite(ctx context.Context, snap *snapshot.Snapshot, rw *config.Rewrite) error {
	if r.cat.Options.SolverVariants {
		if def, ok := snap.Function(rw.Function); ok {
			if _, ok := def.Variant(solverVariant); ok {
				_, err := rewrite.Variant(ctx, snap, rw.Function, solverVariant)
				return err
			}
		}
	}
	_, err := rewrite.Rewrite(ctx, snap, rw.Function, rw.Rules, rw.Idempotent)
	return err
}

func (r *run) compile(ctx context.Context, sub *config.Submodule, fn *script.Func) (*compiler.Function, error) {
	opts := compiler.Options{
		Cache:         r.cat.Options.Cache,
		ForceFallback: slices.Contains(sub.ForceFallback, fn.Name()),
	}
	if r.cat.Options.Vectorize || fn.Definition().Mode == script.ModeVectorize {
		return r.opts.Backend.Vectorize(ctx, fn, opts)
	}
	return r.opts.Backend.Compile(ctx, fn, opts)
}

// rebind freezes the ledger and broadcasts it into every snapshot table and
// every native function scope, then checks that every compiled function can
// resolve all of its free names.
func (r *run) rebind(ctx context.Context) (*ledger.View, error) {
	logger := ctxlog.FromContext(ctx)

	for _, a := range r.cat.Aliases {
		r.ledger.Alias(a.Name, a.Target, a.Modules...)
	}
	if r.opts.BeforeFreeze != nil {
		if err := r.opts.BeforeFreeze(r.ledger); err != nil {
			return nil, &Error{Stage: StageRebind, Err: err}
		}
	}
	view, err := r.ledger.Freeze()
	if err != nil {
		return nil, &Error{Stage: StageRebind, Err: err}
	}

	targets := make([]ledger.Target, 0, len(r.snapshots)+len(r.functions))
	for _, snap := range r.snapshots {
		targets = append(targets, ledger.Target{Module: snap.ID, Into: snap.Table})
	}
	scopes := 0
	for _, c := range r.functions {
		if s := c.Function.Scope(); s != nil {
			targets = append(targets, ledger.Target{Into: s})
			scopes++
		}
	}
	view.Broadcast(targets...)
	logger.Debug("Ledger broadcast.", "names", view.Len(), "tables", len(r.snapshots), "scopes", scopes)

	for _, c := range r.functions {
		if missing := c.Function.Unresolved(); len(missing) > 0 {
			return nil, &Error{
				Stage:  StageRebind,
				Module: c.Module,
				Symbol: c.Function.Name(),
				Err:    fmt.Errorf("%w: unresolved names %s", faults.ErrResolution, strings.Join(missing, ", ")),
			}
		}
	}
	return view, nil
}
