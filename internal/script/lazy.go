package script

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// lazyConditional evaluates only the branch its condition selects. The HCL
// evaluator computes both, which never terminates for recursive functions.
type lazyConditional struct {
	*hclsyntax.ConditionalExpr
}

func (e lazyConditional) Value(ctx *hcl.EvalContext) (cty.Value, hcl.Diagnostics) {
	cond, diags := e.Condition.Value(ctx)
	if diags.HasErrors() {
		return cty.DynamicVal, diags
	}
	if cond.IsNull() {
		return cty.DynamicVal, append(diags, &hcl.Diagnostic{
			Severity:    hcl.DiagError,
			Summary:     "Null condition",
			Detail:      "The condition value is null. Conditions must either be true or false.",
			Subject:     e.Condition.Range().Ptr(),
			Expression:  e.Condition,
			EvalContext: ctx,
		})
	}
	if !cond.IsKnown() {
		return cty.DynamicVal, diags
	}
	cond, err := convert.Convert(cond, cty.Bool)
	if err != nil {
		return cty.DynamicVal, append(diags, &hcl.Diagnostic{
			Severity:    hcl.DiagError,
			Summary:     "Incorrect condition type",
			Detail:      "The condition expression must be of type bool.",
			Subject:     e.Condition.Range().Ptr(),
			Expression:  e.Condition,
			EvalContext: ctx,
		})
	}

	branch := e.FalseResult
	if cond.True() {
		branch = e.TrueResult
	}
	v, more := branch.Value(ctx)
	return v, append(diags, more...)
}

// lazify returns expr with every conditional replaced by a lazyConditional.
// Nodes on the way to a conditional are copied; expr itself is not modified,
// so the parsed definition keeps plain hclsyntax nodes.
func lazify(expr hclsyntax.Expression) hclsyntax.Expression {
	switch e := expr.(type) {
	case *hclsyntax.ConditionalExpr:
		c := *e
		c.Condition = lazify(e.Condition)
		c.TrueResult = lazify(e.TrueResult)
		c.FalseResult = lazify(e.FalseResult)
		return lazyConditional{&c}
	case *hclsyntax.BinaryOpExpr:
		c := *e
		c.LHS, c.RHS = lazify(e.LHS), lazify(e.RHS)
		return &c
	case *hclsyntax.UnaryOpExpr:
		c := *e
		c.Val = lazify(e.Val)
		return &c
	case *hclsyntax.ParenthesesExpr:
		c := *e
		c.Expression = lazify(e.Expression)
		return &c
	case *hclsyntax.FunctionCallExpr:
		c := *e
		c.Args = lazifyAll(e.Args)
		return &c
	case *hclsyntax.TupleConsExpr:
		c := *e
		c.Exprs = lazifyAll(e.Exprs)
		return &c
	case *hclsyntax.ObjectConsExpr:
		c := *e
		c.Items = make([]hclsyntax.ObjectConsItem, len(e.Items))
		for i, item := range e.Items {
			c.Items[i] = hclsyntax.ObjectConsItem{KeyExpr: item.KeyExpr, ValueExpr: lazify(item.ValueExpr)}
		}
		return &c
	case *hclsyntax.IndexExpr:
		c := *e
		c.Collection, c.Key = lazify(e.Collection), lazify(e.Key)
		return &c
	case *hclsyntax.RelativeTraversalExpr:
		c := *e
		c.Source = lazify(e.Source)
		return &c
	case *hclsyntax.ForExpr:
		c := *e
		c.CollExpr = lazify(e.CollExpr)
		c.ValExpr = lazify(e.ValExpr)
		if e.KeyExpr != nil {
			c.KeyExpr = lazify(e.KeyExpr)
		}
		if e.CondExpr != nil {
			c.CondExpr = lazify(e.CondExpr)
		}
		return &c
	case *hclsyntax.TemplateExpr:
		c := *e
		c.Parts = lazifyAll(e.Parts)
		return &c
	case *hclsyntax.TemplateWrapExpr:
		c := *e
		c.Wrapped = lazify(e.Wrapped)
		return &c
	case *hclsyntax.TemplateJoinExpr:
		c := *e
		c.Tuple = lazify(e.Tuple)
		return &c
	default:
		return expr
	}
}

func lazifyAll(exprs []hclsyntax.Expression) []hclsyntax.Expression {
	out := make([]hclsyntax.Expression, len(exprs))
	for i, e := range exprs {
		out[i] = lazify(e)
	}
	return out
}
