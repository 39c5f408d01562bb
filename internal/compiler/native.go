package compiler

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/accelgrid/internal/scope"
	"github.com/vk/accelgrid/internal/script"
	"github.com/vk/accelgrid/internal/symbol"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// frame is the runtime state of one native call.
type frame struct {
	scope  *scope.Table
	locals []cty.Value
}

type node func(fr *frame) (cty.Value, error)

// program is a natively compiled definition. It holds no scope of its own.
type program struct {
	name     string
	params   []string
	defaults []node
	body     node
	onFail   string
}

// slots maps parameter names to frame positions during compilation.
type slots map[string]int

func compileProgram(def *script.Definition) (*program, error) {
	if def.Kwargs {
		return nil, fmt.Errorf("%w: keyword argument capture", ErrUnsupported)
	}
	p := &program{
		name:     def.Name,
		params:   def.Params,
		defaults: make([]node, len(def.Params)),
	}

	for i, name := range def.Params {
		expr, ok := def.Defaults[name]
		if !ok {
			continue
		}
		if lit, ok := expr.(*hclsyntax.LiteralValueExpr); ok && lit.Val.IsNull() {
			return nil, fmt.Errorf("%w: null default for %q", ErrUnsupported, name)
		}
		// Defaults see module names only, never other parameters.
		n, err := compileExpr(expr, slots{})
		if err != nil {
			return nil, err
		}
		p.defaults[i] = n
	}

	if def.OnFail != nil {
		msg, ok := staticString(def.OnFail)
		if !ok {
			return nil, fmt.Errorf("%w: on_fail message must be a plain string", ErrUnsupported)
		}
		p.onFail = msg
	}

	index := make(slots, len(def.Params))
	for i, name := range def.Params {
		index[name] = i
	}
	body, err := compileExpr(def.Result, index)
	if err != nil {
		return nil, err
	}
	p.body = body
	return p, nil
}

func (p *program) run(sc *scope.Table, args []cty.Value) (cty.Value, error) {
	if len(args) > len(p.params) {
		return cty.NilVal, fmt.Errorf("%s: takes %d arguments, got %d", p.name, len(p.params), len(args))
	}
	fr := &frame{scope: sc, locals: make([]cty.Value, len(p.params))}
	copy(fr.locals, args)
	for i := len(args); i < len(p.params); i++ {
		d := p.defaults[i]
		if d == nil {
			return cty.NilVal, fmt.Errorf("%s: missing argument %q", p.name, p.params[i])
		}
		v, err := d(&frame{scope: sc})
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: default for %q: %w", p.name, p.params[i], err)
		}
		fr.locals[i] = v
	}

	v, err := p.body(fr)
	if err != nil {
		msg := p.onFail
		if msg == "" {
			msg = p.name
		}
		return cty.NilVal, fmt.Errorf("%s: %w", msg, err)
	}
	return v, nil
}

func staticString(expr hclsyntax.Expression) (string, bool) {
	tmpl, ok := expr.(*hclsyntax.TemplateExpr)
	if !ok || !tmpl.IsStringLiteral() {
		return "", false
	}
	v := tmpl.Parts[0].(*hclsyntax.LiteralValueExpr).Val
	if v.IsNull() || !v.Type().Equals(cty.String) {
		return "", false
	}
	return v.AsString(), true
}

func unsupported(expr hclsyntax.Expression, what string) error {
	return fmt.Errorf("%w: %s at %s", ErrUnsupported, what, expr.Range())
}

func compileExpr(expr hclsyntax.Expression, index slots) (node, error) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		v := e.Val
		return func(*frame) (cty.Value, error) { return v, nil }, nil

	case *hclsyntax.TemplateExpr:
		s, ok := staticString(e)
		if !ok {
			return nil, unsupported(e, "string interpolation")
		}
		v := cty.StringVal(s)
		return func(*frame) (cty.Value, error) { return v, nil }, nil

	case *hclsyntax.ParenthesesExpr:
		return compileExpr(e.Expression, index)

	case *hclsyntax.ScopeTraversalExpr:
		return compileTraversal(e, index)

	case *hclsyntax.RelativeTraversalExpr:
		src, err := compileExpr(e.Source, index)
		if err != nil {
			return nil, err
		}
		rel := e.Traversal
		return func(fr *frame) (cty.Value, error) {
			v, err := src(fr)
			if err != nil {
				return cty.NilVal, err
			}
			out, diags := rel.TraverseRel(v)
			if diags.HasErrors() {
				return cty.NilVal, diags
			}
			return out, nil
		}, nil

	case *hclsyntax.IndexExpr:
		coll, err := compileExpr(e.Collection, index)
		if err != nil {
			return nil, err
		}
		key, err := compileExpr(e.Key, index)
		if err != nil {
			return nil, err
		}
		rng := e.SrcRange
		return func(fr *frame) (cty.Value, error) {
			c, err := coll(fr)
			if err != nil {
				return cty.NilVal, err
			}
			k, err := key(fr)
			if err != nil {
				return cty.NilVal, err
			}
			v, diags := hcl.Index(c, k, &rng)
			if diags.HasErrors() {
				return cty.NilVal, diags
			}
			return v, nil
		}, nil

	case *hclsyntax.TupleConsExpr:
		elems := make([]node, len(e.Exprs))
		for i, x := range e.Exprs {
			n, err := compileExpr(x, index)
			if err != nil {
				return nil, err
			}
			elems[i] = n
		}
		return func(fr *frame) (cty.Value, error) {
			if len(elems) == 0 {
				return cty.EmptyTupleVal, nil
			}
			vals := make([]cty.Value, len(elems))
			for i, n := range elems {
				v, err := n(fr)
				if err != nil {
					return cty.NilVal, err
				}
				vals[i] = v
			}
			return cty.TupleVal(vals), nil
		}, nil

	case *hclsyntax.UnaryOpExpr:
		val, err := compileExpr(e.Val, index)
		if err != nil {
			return nil, err
		}
		op := e.Op
		return func(fr *frame) (cty.Value, error) {
			v, err := val(fr)
			if err != nil {
				return cty.NilVal, err
			}
			v, err = convert.Convert(v, op.Impl.Params()[0].Type)
			if err != nil {
				return cty.NilVal, fmt.Errorf("invalid operand: %w", err)
			}
			return op.Impl.Call([]cty.Value{v})
		}, nil

	case *hclsyntax.BinaryOpExpr:
		return compileBinary(e, index)

	case *hclsyntax.ConditionalExpr:
		cond, err := compileExpr(e.Condition, index)
		if err != nil {
			return nil, err
		}
		onTrue, err := compileExpr(e.TrueResult, index)
		if err != nil {
			return nil, err
		}
		onFalse, err := compileExpr(e.FalseResult, index)
		if err != nil {
			return nil, err
		}
		return func(fr *frame) (cty.Value, error) {
			ok, err := truth(cond, fr)
			if err != nil {
				return cty.NilVal, err
			}
			if ok {
				return onTrue(fr)
			}
			return onFalse(fr)
		}, nil

	case *hclsyntax.FunctionCallExpr:
		return compileCall(e, index)

	case *hclsyntax.ForExpr:
		return nil, unsupported(e, "for expression")
	case *hclsyntax.SplatExpr:
		return nil, unsupported(e, "splat expression")
	case *hclsyntax.ObjectConsExpr:
		return nil, unsupported(e, "object constructor")
	case *hclsyntax.TemplateWrapExpr, *hclsyntax.TemplateJoinExpr:
		return nil, unsupported(e, "template")
	default:
		return nil, unsupported(expr, fmt.Sprintf("%T", expr))
	}
}

func compileTraversal(e *hclsyntax.ScopeTraversalExpr, index slots) (node, error) {
	root := e.Traversal.RootName()
	var rest hcl.Traversal
	if len(e.Traversal) > 1 {
		rest = e.Traversal[1:]
	}
	traverse := func(v cty.Value) (cty.Value, error) {
		if len(rest) == 0 {
			return v, nil
		}
		out, diags := rest.TraverseRel(v)
		if diags.HasErrors() {
			return cty.NilVal, diags
		}
		return out, nil
	}

	if slot, ok := index[root]; ok {
		return func(fr *frame) (cty.Value, error) {
			return traverse(fr.locals[slot])
		}, nil
	}
	return func(fr *frame) (cty.Value, error) {
		obj, ok := fr.scope.Get(root)
		if !ok {
			return cty.NilVal, fmt.Errorf("name %q is not defined", root)
		}
		v, ok := symbol.ToValue(obj)
		if !ok {
			return cty.NilVal, fmt.Errorf("name %q has no value", root)
		}
		return traverse(v)
	}, nil
}

func compileBinary(e *hclsyntax.BinaryOpExpr, index slots) (node, error) {
	lhs, err := compileExpr(e.LHS, index)
	if err != nil {
		return nil, err
	}
	rhs, err := compileExpr(e.RHS, index)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case hclsyntax.OpLogicalAnd:
		return func(fr *frame) (cty.Value, error) {
			l, err := truth(lhs, fr)
			if err != nil || !l {
				return cty.False, err
			}
			r, err := truth(rhs, fr)
			return cty.BoolVal(r), err
		}, nil
	case hclsyntax.OpLogicalOr:
		return func(fr *frame) (cty.Value, error) {
			l, err := truth(lhs, fr)
			if err != nil {
				return cty.False, err
			}
			if l {
				return cty.True, nil
			}
			r, err := truth(rhs, fr)
			return cty.BoolVal(r), err
		}, nil
	}

	op := e.Op
	params := op.Impl.Params()
	return func(fr *frame) (cty.Value, error) {
		l, err := lhs(fr)
		if err != nil {
			return cty.NilVal, err
		}
		r, err := rhs(fr)
		if err != nil {
			return cty.NilVal, err
		}
		if l, err = convert.Convert(l, params[0].Type); err != nil {
			return cty.NilVal, fmt.Errorf("invalid left operand: %w", err)
		}
		if r, err = convert.Convert(r, params[1].Type); err != nil {
			return cty.NilVal, fmt.Errorf("invalid right operand: %w", err)
		}
		return op.Impl.Call([]cty.Value{l, r})
	}, nil
}

func compileCall(e *hclsyntax.FunctionCallExpr, index slots) (node, error) {
	if strings.Contains(e.Name, "::") {
		return nil, unsupported(e, "namespaced function")
	}
	if e.ExpandFinal {
		return nil, unsupported(e, "argument expansion")
	}
	args := make([]node, len(e.Args))
	for i, a := range e.Args {
		n, err := compileExpr(a, index)
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	name := e.Name
	slot, local := index[name]

	return func(fr *frame) (cty.Value, error) {
		var callee symbol.Callable
		if local {
			c, ok := symbol.AsCallable(fr.locals[slot])
			if !ok {
				return cty.NilVal, fmt.Errorf("%q is not a function", name)
			}
			callee = c
		} else {
			c, ok := fr.scope.Callable(name)
			if !ok {
				return cty.NilVal, fmt.Errorf("call to unknown function %q", name)
			}
			callee = c
		}
		vals := make([]cty.Value, len(args))
		for i, n := range args {
			v, err := n(fr)
			if err != nil {
				return cty.NilVal, err
			}
			vals[i] = v
		}
		out, err := callee.Call(vals)
		if err != nil {
			return cty.NilVal, fmt.Errorf("%s: %w", name, err)
		}
		return out, nil
	}, nil
}

func truth(n node, fr *frame) (bool, error) {
	v, err := n(fr)
	if err != nil {
		return false, err
	}
	if v.IsNull() || !v.IsKnown() {
		return false, fmt.Errorf("condition must be true or false")
	}
	v, err = convert.Convert(v, cty.Bool)
	if err != nil {
		return false, fmt.Errorf("condition must be true or false: %w", err)
	}
	return v.True(), nil
}
