package script

import (
	"errors"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/accelgrid/internal/scope"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Func is a definition bound to the table its free names resolve through.
type Func struct {
	def     *Definition
	globals *scope.Table
	// result is def.Result with lazily evaluated conditionals.
	result hclsyntax.Expression
}

// Bind ties def to globals.
func Bind(def *Definition, globals *scope.Table) *Func {
	f := &Func{def: def, globals: globals}
	if def.Result != nil {
		f.result = lazify(def.Result)
	}
	return f
}

// Name returns the function's name.
func (f *Func) Name() string { return f.def.Name }

// Definition returns the parsed definition.
func (f *Func) Definition() *Definition { return f.def }

// Globals returns the table free names resolve through.
func (f *Func) Globals() *scope.Table { return f.globals }

// Call evaluates the function's result with the HCL evaluator. Only the
// selected branch of a conditional is evaluated, so recursion terminates.
// Parameters holding callables can be called by name.
func (f *Func) Call(args []cty.Value) (cty.Value, error) {
	ectx := f.globals.EvalContext()
	locals, err := f.def.BindArgs(args, ectx)
	if err != nil {
		return cty.NilVal, err
	}
	child := ectx.NewChild()
	child.Variables = locals
	for name, v := range locals {
		if c, ok := symbol.AsCallable(v); ok {
			if child.Functions == nil {
				child.Functions = make(map[string]function.Function)
			}
			child.Functions[name] = symbol.Function(c)
		}
	}

	v, diags := f.result.Value(child)
	if diags.HasErrors() {
		return cty.NilVal, f.def.Fail(child, DiagnosticsError(diags))
	}
	return v, nil
}

// BindArgs maps positional arguments onto parameters. Missing trailing
// arguments take their defaults, evaluated in ectx. When the definition
// captures keyword arguments, a trailing object is taken as the keyword
// object when it is an extra argument or lands on a parameter that has a
// default. Its attributes override parameters of the same name and the whole
// object is exposed as the "kwargs" local.
func (d *Definition) BindArgs(args []cty.Value, ectx *hcl.EvalContext) (map[string]cty.Value, error) {
	locals := make(map[string]cty.Value, len(d.Params)+1)
	var kwargs cty.Value
	if d.Kwargs {
		kwargs = cty.EmptyObjectVal
		if d.trailingKwargs(args) {
			kwargs = args[len(args)-1]
			args = args[:len(args)-1]
			if kwargs.IsNull() || !isObject(kwargs) {
				return nil, fmt.Errorf("%s: keyword arguments must be an object", d.Name)
			}
		}
		locals[KwargsName] = kwargs
	}
	if len(args) > len(d.Params) {
		return nil, fmt.Errorf("%s: takes %d arguments, got %d", d.Name, len(d.Params), len(args))
	}

	for i, p := range d.Params {
		switch {
		case d.Kwargs && kwargs.Type().IsObjectType() && kwargs.Type().HasAttribute(p):
			locals[p] = kwargs.GetAttr(p)
		case i < len(args):
			locals[p] = args[i]
		default:
			expr, ok := d.Defaults[p]
			if !ok {
				return nil, fmt.Errorf("%s: missing argument %q", d.Name, p)
			}
			v, diags := expr.Value(ectx)
			if diags.HasErrors() {
				return nil, fmt.Errorf("%s: default for %q: %w", d.Name, p, DiagnosticsError(diags))
			}
			locals[p] = v
		}
	}
	return locals, nil
}

func (d *Definition) trailingKwargs(args []cty.Value) bool {
	n := len(args)
	if n > len(d.Params) {
		return true
	}
	if n == 0 {
		return false
	}
	last := args[n-1]
	if last.IsNull() || !isObject(last) {
		return false
	}
	_, hasDefault := d.Defaults[d.Params[n-1]]
	return hasDefault
}

func isObject(v cty.Value) bool {
	return v.Type().IsObjectType() || v.Type().IsMapType()
}

// Fail prefixes err with the definition's on_fail message, evaluated in
// ectx. Without an on_fail message the function name is used.
func (d *Definition) Fail(ectx *hcl.EvalContext, err error) error {
	if d.OnFail == nil {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	msg, diags := d.OnFail.Value(ectx)
	if diags.HasErrors() || msg.IsNull() || !msg.Type().Equals(cty.String) {
		return fmt.Errorf("%s: %w", d.Name, err)
	}
	return fmt.Errorf("%s: %w", msg.AsString(), err)
}

// DiagnosticsError converts diagnostics into an error. When a diagnostic was
// caused by an error returned from a called function, that error is wrapped
// so errors.Is keeps working across nested calls.
func DiagnosticsError(diags hcl.Diagnostics) error {
	for _, diag := range diags {
		if diag.Severity != hcl.DiagError {
			continue
		}
		extra, ok := hcl.DiagnosticExtra[hclsyntax.FunctionCallDiagExtra](diag)
		if !ok {
			continue
		}
		if err := extra.FunctionCallError(); err != nil {
			return fmt.Errorf("%s: %w", extra.CalledFunctionName(), err)
		}
	}
	if len(diags) == 0 {
		return errors.New("no diagnostics")
	}
	return diags
}
