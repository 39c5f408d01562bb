package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/accelgrid/internal/config"
	"github.com/vk/accelgrid/internal/ctxlog"
	"github.com/vk/accelgrid/internal/faults"
	"github.com/vk/accelgrid/internal/registry"
	"github.com/vk/accelgrid/internal/scope"
	"github.com/vk/accelgrid/internal/script"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/zclconf/go-cty/cty"
)

// Loader builds snapshots of the modules described by a catalogue.
type Loader struct {
	fsys     fs.FS
	cat      *config.Catalogue
	builtins *registry.Registry
}

// NewLoader creates a loader reading module sources from fsys. builtins may
// be nil.
func NewLoader(fsys fs.FS, cat *config.Catalogue, builtins *registry.Registry) *Loader {
	return &Loader{fsys: fsys, cat: cat, builtins: builtins}
}

// Load executes module id into a fresh snapshot. Unknown modules and missing
// source files are resolution errors; parse and evaluation failures are
// execution errors. On error no snapshot is returned.
func (l *Loader) Load(ctx context.Context, id string) (*Snapshot, error) {
	return l.load(ctx, id, nil)
}

func (l *Loader) load(ctx context.Context, id string, stack []string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("module", id)

	desc, ok := l.cat.Submodule(id)
	if !ok {
		return nil, fmt.Errorf("%w: module %q is not in the catalogue", faults.ErrResolution, id)
	}
	src, err := fs.ReadFile(l.fsys, desc.Source)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: source of module %q: %v", faults.ErrResolution, id, err)
		}
		return nil, fmt.Errorf("%w: reading module %q: %v", faults.ErrExecution, id, err)
	}
	file, err := script.Parse(desc.Source, src)
	if err != nil {
		return nil, fmt.Errorf("%w: module %q: %v", faults.ErrExecution, id, err)
	}

	table := scope.New()
	if l.builtins != nil {
		l.builtins.Seed(table)
	}

	stack = append(stack, id)
	for _, req := range desc.Requires {
		if slices.Contains(stack, req) {
			return nil, fmt.Errorf("%w: import cycle %s -> %s", faults.ErrExecution, strings.Join(stack, " -> "), req)
		}
		dep, err := l.load(ctx, req, stack)
		if err != nil {
			return nil, fmt.Errorf("module %q requires %q: %w", id, req, err)
		}
		for _, name := range dep.Exports {
			if obj, ok := dep.Table.Get(name); ok {
				table.Set(name, obj)
			}
		}
		logger.Debug("Imported required module.", "required", req, "names", len(dep.Exports))
	}

	for _, def := range file.Functions {
		table.Set(def.Name, script.Bind(def, table))
	}

	order, err := evaluationOrder(file)
	if err != nil {
		return nil, fmt.Errorf("%w: module %q: %v", faults.ErrExecution, id, err)
	}
	decls := make(map[string]hclsyntax.Expression, len(file.Attributes))
	for _, attr := range order {
		v, diags := attr.Expr.Value(table.EvalContext())
		if diags.HasErrors() {
			return nil, fmt.Errorf("%w: module %q, attribute %q: %v", faults.ErrExecution, id, attr.Name, script.DiagnosticsError(diags))
		}
		table.Set(attr.Name, symbol.FromValue(v))
		decls[attr.Name] = attr.Expr
	}

	snap := &Snapshot{
		ID:         id,
		Table:      table,
		Decls:      decls,
		File:       file,
		Descriptor: desc,
	}
	if snap.Exports, err = l.nameList(snap, desc.Exports, ExportsAttr, true); err != nil {
		return nil, fmt.Errorf("%w: module %q: %v", faults.ErrExecution, id, err)
	}
	if snap.Internal, err = l.nameList(snap, desc.Internal, InternalAttr, false); err != nil {
		return nil, fmt.Errorf("%w: module %q: %v", faults.ErrExecution, id, err)
	}

	logger.Debug("Module snapshot created.", "functions", len(file.Functions), "attributes", len(decls),
		"exports", len(snap.Exports), "internal", len(snap.Internal))
	return snap, nil
}

// nameList returns declared names if given, otherwise the names listed by
// the module's attr attribute. Without either, public modules default to
// every name they define that does not start with an underscore.
func (l *Loader) nameList(snap *Snapshot, declared []string, attr string, public bool) ([]string, error) {
	names := declared
	if len(names) == 0 {
		if _, ok := snap.Decls[attr]; ok {
			v, _ := snap.Table.Value(attr)
			list, err := stringList(v)
			if err != nil {
				return nil, fmt.Errorf("attribute %q: %w", attr, err)
			}
			names = list
		} else if public {
			names = defaultExports(snap)
		}
	}
	for _, n := range names {
		if !snap.Table.Has(n) {
			return nil, fmt.Errorf("%s name %q is not defined", attr, n)
		}
	}
	return names, nil
}

func defaultExports(snap *Snapshot) []string {
	var out []string
	for _, def := range snap.File.Functions {
		if !strings.HasPrefix(def.Name, "_") {
			out = append(out, def.Name)
		}
	}
	for _, a := range snap.File.Attributes {
		if a.Name != InternalAttr && !strings.HasPrefix(a.Name, "_") {
			out = append(out, a.Name)
		}
	}
	return out
}

func stringList(v cty.Value) ([]string, error) {
	if v.IsNull() || !v.CanIterateElements() || v.Type().IsMapType() || v.Type().IsObjectType() {
		return nil, fmt.Errorf("must be a list of names")
	}
	var out []string
	for it := v.ElementIterator(); it.Next(); {
		_, e := it.Element()
		if e.IsNull() || !e.Type().Equals(cty.String) {
			return nil, fmt.Errorf("must be a list of names")
		}
		out = append(out, e.AsString())
	}
	return out, nil
}
