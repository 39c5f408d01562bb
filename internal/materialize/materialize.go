// Package materialize converts literal numeric tables declared in module
// source into dense arrays.
package materialize

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/accelgrid/internal/ctxlog"
	"github.com/vk/accelgrid/internal/dense"
	"github.com/vk/accelgrid/internal/faults"
	"github.com/vk/accelgrid/internal/snapshot"
	"github.com/zclconf/go-cty/cty"
)

// Materialize scans the attributes of snap in declaration order and replaces
// every flat or rectangular literal numeric table with a dense array, both in
// the snapshot table and in the returned map. Names are returned in
// declaration order.
//
// Ragged tables and tables mixing integer and real literals are left alone.
// A table whose first element qualifies but which later holds a non-numeric
// literal fails with faults.ErrMaterialization.
func Materialize(ctx context.Context, snap *snapshot.Snapshot) (map[string]*dense.Array, []string, error) {
	logger := ctxlog.FromContext(ctx).With("module", snap.ID)
	out := make(map[string]*dense.Array)
	var order []string

	for _, attr := range snap.File.Attributes {
		if attr.Name == snapshot.ExportsAttr || attr.Name == snapshot.InternalAttr {
			continue
		}
		expr, ok := snap.Decls[attr.Name]
		if !ok {
			continue
		}
		lit, err := scan(expr, snap.Source())
		if err != nil {
			return nil, nil, fmt.Errorf("%w: module %q, attribute %q: %v", faults.ErrMaterialization, snap.ID, attr.Name, err)
		}
		if lit == nil {
			continue
		}

		v, ok := snap.Table.Value(attr.Name)
		if !ok {
			continue
		}
		data, err := flatten(v, lit)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: module %q, attribute %q: %v", faults.ErrMaterialization, snap.ID, attr.Name, err)
		}
		arr, err := dense.New(lit.kind, lit.shape, data)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: module %q, attribute %q: %v", faults.ErrMaterialization, snap.ID, attr.Name, err)
		}

		snap.Table.Set(attr.Name, arr)
		out[attr.Name] = arr
		order = append(order, attr.Name)
		logger.Debug("Materialized array.", "name", attr.Name, "array", arr.String())
	}
	return out, order, nil
}

type literal struct {
	kind  dense.Kind
	shape []int
}

// scan decides whether expr is an eligible literal table. It returns nil
// for anything that should pass through unchanged.
func scan(expr hclsyntax.Expression, src []byte) (*literal, error) {
	tuple, ok := expr.(*hclsyntax.TupleConsExpr)
	if !ok || len(tuple.Exprs) == 0 {
		return nil, nil
	}

	if _, ok := tuple.Exprs[0].(*hclsyntax.TupleConsExpr); ok {
		return scanRows(tuple, src)
	}
	kind, ok := numberKind(tuple.Exprs[0], src)
	if !ok {
		return nil, nil
	}
	kind, ok, err := scanRow(tuple, kind, src)
	if err != nil || !ok {
		return nil, err
	}
	return &literal{kind: kind, shape: []int{len(tuple.Exprs)}}, nil
}

func scanRows(tuple *hclsyntax.TupleConsExpr, src []byte) (*literal, error) {
	first := tuple.Exprs[0].(*hclsyntax.TupleConsExpr)
	if len(first.Exprs) == 0 {
		return nil, nil
	}
	kind, ok := numberKind(first.Exprs[0], src)
	if !ok {
		return nil, nil
	}
	cols := len(first.Exprs)
	for i, e := range tuple.Exprs {
		row, ok := e.(*hclsyntax.TupleConsExpr)
		if !ok {
			if isLiteral(e) {
				return nil, fmt.Errorf("row %d is not a sequence", i)
			}
			return nil, nil
		}
		if len(row.Exprs) != cols {
			return nil, nil
		}
		rowKind, ok, err := scanRow(row, kind, src)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if !ok || rowKind != kind {
			return nil, nil
		}
	}
	return &literal{kind: kind, shape: []int{len(tuple.Exprs), cols}}, nil
}

// scanRow checks that every element of row is a numeric literal of kind.
func scanRow(row *hclsyntax.TupleConsExpr, kind dense.Kind, src []byte) (dense.Kind, bool, error) {
	for i, e := range row.Exprs {
		k, ok := numberKind(e, src)
		if !ok {
			if isLiteral(e) {
				return 0, false, fmt.Errorf("element %d is not numeric", i)
			}
			return 0, false, nil
		}
		if k != kind {
			return 0, false, nil
		}
	}
	return kind, true, nil
}

// numberKind reports the kind of a numeric literal, optionally negated. The
// kind is read from the literal's source token.
func numberKind(expr hclsyntax.Expression, src []byte) (dense.Kind, bool) {
	if neg, ok := expr.(*hclsyntax.UnaryOpExpr); ok && neg.Op == hclsyntax.OpNegate {
		expr = neg.Val
	}
	lit, ok := expr.(*hclsyntax.LiteralValueExpr)
	if !ok || lit.Val.IsNull() || !lit.Val.Type().Equals(cty.Number) {
		return 0, false
	}
	rng := lit.Range()
	if rng.Start.Byte < 0 || rng.End.Byte > len(src) || rng.Start.Byte >= rng.End.Byte {
		return dense.Real, true
	}
	if bytes.ContainsAny(src[rng.Start.Byte:rng.End.Byte], ".eE") {
		return dense.Real, true
	}
	return dense.Integer, true
}

func isLiteral(expr hclsyntax.Expression) bool {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		return true
	case *hclsyntax.TemplateExpr:
		return e.IsStringLiteral()
	}
	return false
}

func flatten(v cty.Value, lit *literal) ([]float64, error) {
	shape := lit.shape
	data := make([]float64, 0, shape[0]*cols(shape))
	if len(shape) == 1 {
		return appendRow(data, v, shape[0], lit.kind)
	}
	if v.LengthInt() != shape[0] {
		return nil, fmt.Errorf("value has %d rows, declared %d", v.LengthInt(), shape[0])
	}
	for i := 0; i < shape[0]; i++ {
		var err error
		if data, err = appendRow(data, v.Index(cty.NumberIntVal(int64(i))), shape[1], lit.kind); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	return data, nil
}

func cols(shape []int) int {
	if len(shape) == 2 {
		return shape[1]
	}
	return 1
}

func appendRow(data []float64, row cty.Value, n int, kind dense.Kind) ([]float64, error) {
	if row.IsNull() || !(row.Type().IsTupleType() || row.Type().IsListType()) || row.LengthInt() != n {
		return nil, fmt.Errorf("value does not match its declaration")
	}
	for i := 0; i < n; i++ {
		e := row.Index(cty.NumberIntVal(int64(i)))
		if e.IsNull() || !e.Type().Equals(cty.Number) {
			return nil, fmt.Errorf("element %d is not numeric", i)
		}
		f, acc := e.AsBigFloat().Float64()
		if kind == dense.Integer && (acc != big.Exact || math.Abs(f) > dense.MaxExactInt) {
			return nil, fmt.Errorf("element %d: integer %s is outside the exactly representable range", i, e.AsBigFloat().Text('f', -1))
		}
		data = append(data, f)
	}
	return data, nil
}
