package app

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/accelgrid/internal/compiler"
	"github.com/vk/accelgrid/internal/ctxlog"
	"github.com/vk/accelgrid/internal/dense"
	"github.com/vk/accelgrid/internal/fsutil"
	"github.com/vk/accelgrid/internal/pipeline"
	"github.com/vk/accelgrid/internal/script"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/zclconf/go-cty/cty"
)

// Transform runs the pipeline over the loaded catalogue.
func (a *App) Transform(ctx context.Context) (*pipeline.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Transform started.")

	res, err := pipeline.Run(ctx, a.catalogue, a.fsys, pipeline.Options{Builtins: a.registry})
	if err != nil {
		return nil, err
	}
	a.logger.Debug("App.Transform finished.", "run_id", res.RunID)
	return res, nil
}

// List writes every published name with its module and what it is bound to.
func (a *App) List(ctx context.Context) error {
	res, err := a.Transform(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMODULE\tKIND")
	for _, name := range res.Namespace.Names() {
		obj, _ := res.Namespace.Get(name)
		module, _ := res.Namespace.Module(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, module, describe(obj))
	}
	return tw.Flush()
}

// Call invokes a published function. Each argument is an HCL expression
// without variables, such as 1e5, [1, 2] or "text".
func (a *App) Call(ctx context.Context, name string, args []string) error {
	vals := make([]cty.Value, len(args))
	for i, arg := range args {
		v, err := parseArg(arg)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i+1, err)
		}
		vals[i] = v
	}

	res, err := a.Transform(ctx)
	if err != nil {
		return err
	}
	out, err := res.Namespace.Call(name, vals...)
	if err != nil {
		return fmt.Errorf("call to %s failed: %w", name, err)
	}
	fmt.Fprintln(a.outW, formatValue(out))
	return nil
}

// Check runs the pipeline and reports how every function was compiled. It
// warns about module files next to the catalogue that no submodule uses.
func (a *App) Check(ctx context.Context) error {
	res, err := a.Transform(ctx)
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, c := range res.Functions {
		counts[c.Function.Mode().String()+"/"+c.Function.Shape().String()]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	fmt.Fprintf(a.outW, "catalogue %q: %d modules, %d published names, %d compiled functions\n",
		a.catalogue.Name, len(res.Snapshots), res.Namespace.Len(), len(res.Functions))
	for _, k := range keys {
		fmt.Fprintf(a.outW, "  %-20s %d\n", k, counts[k])
	}

	files, err := fsutil.FindFilesByExtension(a.fsys, path.Dir(a.manifestPath), ".hcl")
	if err != nil {
		return fmt.Errorf("failed to scan catalogue directory: %w", err)
	}
	used := map[string]bool{a.manifestPath: true}
	for _, s := range a.catalogue.Submodules {
		used[s.Source] = true
	}
	// Catalogues may ship in several formats side by side.
	stem := strings.TrimSuffix(path.Base(a.manifestPath), path.Ext(a.manifestPath))
	for _, f := range files {
		if !used[f] && path.Base(f) != stem+".hcl" {
			a.logger.Warn("Module file is not part of the catalogue.", "file", f)
		}
	}
	return nil
}

func parseArg(s string) (cty.Value, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(s), "argument", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, script.DiagnosticsError(diags)
	}
	v, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, script.DiagnosticsError(diags)
	}
	return v, nil
}

// formatValue renders v as HCL. Numbers are printed at float64 precision.
func formatValue(v cty.Value) string {
	if _, ok := symbol.AsCallable(v); ok {
		return "<function>"
	}
	if !v.IsWhollyKnown() {
		return "<unknown>"
	}
	ty := v.Type()
	switch {
	case v.IsNull():
		return "null"
	case ty.Equals(cty.Number):
		f, err := symbol.Float(v)
		if err != nil {
			return "<invalid>"
		}
		return strconv.FormatFloat(f, 'g', -1, 64)
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		parts := make([]string, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			_, e := it.Element()
			parts = append(parts, formatValue(e))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ty.IsMapType() || ty.IsObjectType():
		parts := make([]string, 0, v.LengthInt())
		for it := v.ElementIterator(); it.Next(); {
			k, e := it.Element()
			parts = append(parts, fmt.Sprintf("%s = %s", k.AsString(), formatValue(e)))
		}
		if len(parts) == 0 {
			return "{}"
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return string(hclwrite.TokensForValue(v).Bytes())
	}
}

func describe(obj symbol.Object) string {
	switch o := obj.(type) {
	case *compiler.Function:
		return fmt.Sprintf("function (%s, %s)", o.Mode(), o.Shape())
	case *dense.Array:
		return o.String()
	case symbol.Callable:
		return "builtin"
	case cty.Value:
		return o.Type().FriendlyName()
	default:
		return fmt.Sprintf("%T", obj)
	}
}
