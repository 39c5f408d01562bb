package script

import (
	"sort"

	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Refs returns the sorted free names the definition reads as values and the
// sorted names of the functions it calls. Parameters and the kwargs local
// are excluded. The analysis runs once per definition.
func (d *Definition) Refs() (names []string, calls []string) {
	d.refsOnce.Do(func() {
		vars := make(map[string]struct{})
		funcs := make(map[string]struct{})
		exprs := []hclsyntax.Expression{d.Result, d.OnFail}
		for _, e := range d.Defaults {
			exprs = append(exprs, e)
		}
		for _, e := range exprs {
			if e == nil {
				continue
			}
			for _, t := range e.Variables() {
				vars[t.RootName()] = struct{}{}
			}
			walkForFunctions(e, funcs)
		}
		for _, p := range d.Params {
			delete(vars, p)
		}
		if d.Kwargs {
			delete(vars, KwargsName)
		}
		d.refs = sortedKeys(vars)
		d.calls = sortedKeys(funcs)
	})
	return d.refs, d.calls
}

// References returns the sorted root names read by exprs.
func References(exprs ...hclsyntax.Expression) []string {
	vars := make(map[string]struct{})
	for _, e := range exprs {
		if e == nil {
			continue
		}
		for _, t := range e.Variables() {
			vars[t.RootName()] = struct{}{}
		}
	}
	return sortedKeys(vars)
}

// CalledFunctions returns the sorted names of functions called in exprs.
func CalledFunctions(exprs ...hclsyntax.Expression) []string {
	funcs := make(map[string]struct{})
	for _, e := range exprs {
		walkForFunctions(e, funcs)
	}
	return sortedKeys(funcs)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// walkForFunctions recursively walks the AST, looking only for function calls.
func walkForFunctions(expr hclsyntax.Expression, functions map[string]struct{}) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		functions[e.Name] = struct{}{}
		for _, arg := range e.Args {
			walkForFunctions(arg, functions)
		}
	case *hclsyntax.BinaryOpExpr:
		walkForFunctions(e.LHS, functions)
		walkForFunctions(e.RHS, functions)
	case *hclsyntax.ConditionalExpr:
		walkForFunctions(e.Condition, functions)
		walkForFunctions(e.TrueResult, functions)
		walkForFunctions(e.FalseResult, functions)
	case *hclsyntax.UnaryOpExpr:
		walkForFunctions(e.Val, functions)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			walkForFunctions(part, functions)
		}
	case *hclsyntax.TemplateWrapExpr:
		walkForFunctions(e.Wrapped, functions)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			walkForFunctions(item, functions)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			walkForFunctions(item.KeyExpr, functions)
			walkForFunctions(item.ValueExpr, functions)
		}
	case *hclsyntax.ForExpr:
		walkForFunctions(e.CollExpr, functions)
		walkForFunctions(e.KeyExpr, functions)
		walkForFunctions(e.ValExpr, functions)
		walkForFunctions(e.CondExpr, functions)
	case *hclsyntax.IndexExpr:
		walkForFunctions(e.Collection, functions)
		walkForFunctions(e.Key, functions)
	case *hclsyntax.RelativeTraversalExpr:
		walkForFunctions(e.Source, functions)
	case *hclsyntax.SplatExpr:
		walkForFunctions(e.Source, functions)
		walkForFunctions(e.Each, functions)
	case *hclsyntax.ParenthesesExpr:
		walkForFunctions(e.Expression, functions)
	}
}
