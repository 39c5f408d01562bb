package script

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

const (
	// KwargsName is the local that holds captured keyword arguments.
	KwargsName = "kwargs"

	blockFunction = "function"
	blockVariant  = "variant"
)

// Function modes a definition may request.
const (
	ModeNative    = "native"
	ModeVectorize = "vectorize"
	ModeFallback  = "fallback"
)

var functionAttributes = map[string]bool{
	"params":   true,
	"defaults": true,
	"kwargs":   true,
	"mode":     true,
	"result":   true,
	"on_fail":  true,
}

// Attribute is a top-level "name = expr" definition.
type Attribute struct {
	Name  string
	Expr  hclsyntax.Expression
	Range hcl.Range
}

// Definition is a parsed function block.
type Definition struct {
	Name     string
	Params   []string
	Defaults map[string]hclsyntax.Expression
	Kwargs   bool
	Mode     string
	Result   hclsyntax.Expression
	OnFail   hclsyntax.Expression
	Variants map[string]*Definition

	// Source is the exact text of the block, as it appeared in its file.
	Source []byte
	Range  hcl.Range

	refsOnce sync.Once
	refs     []string
	calls    []string
}

// File is a parsed module source file.
type File struct {
	Name       string
	Source     []byte
	Attributes []*Attribute
	Functions  []*Definition
}

// Parse parses a module source file.
func Parse(filename string, src []byte) (*File, error) {
	f, diags := parseFile(filename, src)
	if diags.HasErrors() {
		return nil, diags
	}
	return f, nil
}

// ParseFunction parses source text holding exactly one function block.
func ParseFunction(filename string, src []byte) (*Definition, error) {
	f, diags := parseFile(filename, src)
	if diags.HasErrors() {
		return nil, diags
	}
	if len(f.Attributes) != 0 || len(f.Functions) != 1 {
		return nil, fmt.Errorf("%s: expected a single function block, found %d functions and %d attributes",
			filename, len(f.Functions), len(f.Attributes))
	}
	return f.Functions[0], nil
}

func parseFile(filename string, src []byte) (*File, hcl.Diagnostics) {
	hf, diags := hclsyntax.ParseConfig(src, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	body := hf.Body.(*hclsyntax.Body)

	f := &File{Name: filename, Source: src}
	seen := make(map[string]hcl.Range)

	for name, attr := range body.Attributes {
		f.Attributes = append(f.Attributes, &Attribute{Name: name, Expr: attr.Expr, Range: attr.SrcRange})
		seen[name] = attr.SrcRange
	}
	sort.Slice(f.Attributes, func(i, j int) bool {
		return f.Attributes[i].Range.Start.Byte < f.Attributes[j].Range.Start.Byte
	})

	for _, block := range body.Blocks {
		if block.Type != blockFunction {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported block type",
				Detail:   fmt.Sprintf("Blocks of type %q are not expected here; only %q blocks are allowed.", block.Type, blockFunction),
				Subject:  block.TypeRange.Ptr(),
			})
			continue
		}
		def, defDiags := decodeFunction(block, src)
		diags = append(diags, defDiags...)
		if def == nil {
			continue
		}
		if prev, dup := seen[def.Name]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate definition",
				Detail:   fmt.Sprintf("%q is already defined at %s.", def.Name, prev),
				Subject:  block.DefRange().Ptr(),
			})
			continue
		}
		seen[def.Name] = def.Range
		f.Functions = append(f.Functions, def)
	}
	return f, diags
}

func decodeFunction(block *hclsyntax.Block, src []byte) (*Definition, hcl.Diagnostics) {
	if len(block.Labels) != 1 {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid function block",
			Detail:   "A function block needs exactly one label: its name.",
			Subject:  block.DefRange().Ptr(),
		}}
	}
	name := block.Labels[0]
	if !hclsyntax.ValidIdentifier(name) {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid function name",
			Detail:   fmt.Sprintf("%q is not a valid identifier.", name),
			Subject:  block.LabelRanges[0].Ptr(),
		}}
	}

	def, diags := decodeBody(name, block.Body)
	if def == nil {
		return nil, diags
	}
	rng := block.Range()
	def.Range = rng
	def.Source = src[rng.Start.Byte:rng.End.Byte]

	seen := make(map[string]*hclsyntax.Block)
	for _, vb := range block.Body.Blocks {
		if vb.Type != blockVariant || len(vb.Labels) != 1 {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported block",
				Detail:   fmt.Sprintf("Only labelled %q blocks may appear inside a function.", blockVariant),
				Subject:  vb.DefRange().Ptr(),
			})
			continue
		}
		label := vb.Labels[0]
		if _, dup := seen[label]; dup {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate \"variant\" block",
				Detail:   fmt.Sprintf("Only one %q variant is allowed per function.", label),
				Subject:  vb.DefRange().Ptr(),
			})
			continue
		}
		seen[label] = vb
		v, vDiags := decodeBody(name, vb.Body)
		diags = append(diags, vDiags...)
		if v == nil {
			continue
		}
		vr := vb.Range()
		v.Range = vr
		v.Source = src[vr.Start.Byte:vr.End.Byte]
		if def.Variants == nil {
			def.Variants = make(map[string]*Definition)
		}
		def.Variants[label] = v
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return def, diags
}

func decodeBody(name string, body *hclsyntax.Body) (*Definition, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	for attrName, attr := range body.Attributes {
		if !functionAttributes[attrName] {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported argument",
				Detail:   fmt.Sprintf("An argument named %q is not expected in a function.", attrName),
				Subject:  attr.NameRange.Ptr(),
			})
		}
	}

	def := &Definition{Name: name, Defaults: map[string]hclsyntax.Expression{}}

	if attr, ok := body.Attributes["params"]; ok {
		exprs, d := hcl.ExprList(attr.Expr)
		diags = append(diags, d...)
		for _, e := range exprs {
			p := hcl.ExprAsKeyword(e)
			if p == "" {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid parameter",
					Detail:   "Parameters must be bare identifiers.",
					Subject:  e.Range().Ptr(),
				})
				continue
			}
			def.Params = append(def.Params, p)
		}
	}

	if attr, ok := body.Attributes["defaults"]; ok {
		pairs, d := hcl.ExprMap(attr.Expr)
		diags = append(diags, d...)
		for _, pair := range pairs {
			key := hcl.ExprAsKeyword(pair.Key)
			if key == "" {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid default",
					Detail:   "Default keys must be parameter names.",
					Subject:  pair.Key.Range().Ptr(),
				})
				continue
			}
			def.Defaults[key] = pair.Value.(hclsyntax.Expression)
		}
	}

	if attr, ok := body.Attributes["kwargs"]; ok {
		v, d := attr.Expr.Value(nil)
		diags = append(diags, d...)
		if !d.HasErrors() {
			if v.IsNull() || !v.Type().Equals(cty.Bool) {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid kwargs flag",
					Detail:   "kwargs must be true or false.",
					Subject:  attr.Expr.Range().Ptr(),
				})
			} else {
				def.Kwargs = v.True()
			}
		}
	}

	if attr, ok := body.Attributes["mode"]; ok {
		v, d := attr.Expr.Value(nil)
		diags = append(diags, d...)
		if !d.HasErrors() {
			mode := ""
			if !v.IsNull() && v.Type().Equals(cty.String) {
				mode = v.AsString()
			}
			switch mode {
			case ModeNative, ModeVectorize, ModeFallback:
				def.Mode = mode
			default:
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Invalid mode",
					Detail:   fmt.Sprintf("mode must be %q, %q or %q.", ModeNative, ModeVectorize, ModeFallback),
					Subject:  attr.Expr.Range().Ptr(),
				})
			}
		}
	}

	if attr, ok := body.Attributes["on_fail"]; ok {
		def.OnFail = attr.Expr
	}

	attr, ok := body.Attributes["result"]
	if !ok {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Missing result",
			Detail:   fmt.Sprintf("Function %q has no result expression.", name),
			Subject:  body.MissingItemRange().Ptr(),
		})
	} else {
		def.Result = attr.Expr
	}

	for key, expr := range def.Defaults {
		if !def.HasParam(key) {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid default",
				Detail:   fmt.Sprintf("%q is not a parameter of %q.", key, name),
				Subject:  expr.Range().Ptr(),
			})
		}
	}

	if diags.HasErrors() {
		return nil, diags
	}
	return def, diags
}

// HasParam reports whether p is one of the definition's parameters.
func (d *Definition) HasParam(p string) bool {
	for _, q := range d.Params {
		if q == p {
			return true
		}
	}
	return false
}

// Variant returns a definition that uses the named variant's parameters and
// body in place of the definition's own.
func (d *Definition) Variant(name string) (*Definition, bool) {
	v, ok := d.Variants[name]
	if !ok {
		return nil, false
	}
	out := &Definition{
		Name:     d.Name,
		Params:   v.Params,
		Defaults: v.Defaults,
		Kwargs:   v.Kwargs,
		Mode:     d.Mode,
		Result:   v.Result,
		OnFail:   v.OnFail,
		Source:   v.Source,
		Range:    v.Range,
	}
	if v.Mode != "" {
		out.Mode = v.Mode
	}
	return out, true
}
