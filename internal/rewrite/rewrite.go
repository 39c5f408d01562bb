// Package rewrite patches the source text of individual module functions
// and rebinds the result into the owning snapshot.
//
// Rewriting is reserved for an allow-list of functions whose signatures use
// features the native backend cannot compile. Rules are literal find and
// replace pairs applied in declaration order; no parsing happens until all
// of them have run.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/accelgrid/internal/config"
	"github.com/vk/accelgrid/internal/ctxlog"
	"github.com/vk/accelgrid/internal/faults"
	"github.com/vk/accelgrid/internal/script"
	"github.com/vk/accelgrid/internal/snapshot"
)

// ErrNoVariant is returned by Variant when the function declares no variant
// with the requested label.
var ErrNoVariant = errors.New("no such variant")

// Apply runs rules over src in order and reports how many of them matched
// at least once.
func Apply(src string, rules []config.Rule) (string, int) {
	matched := 0
	for _, r := range rules {
		if r.Match == "" || !strings.Contains(src, r.Match) {
			continue
		}
		src = strings.ReplaceAll(src, r.Match, r.Replace)
		matched++
	}
	return src, matched
}

// current returns the definition name is bound to in owner, preferring an
// already rewritten version over the one parsed from the file.
func current(owner *snapshot.Snapshot, name string) (*script.Definition, error) {
	if c, ok := owner.Table.Callable(name); ok {
		if fn, ok := c.(*script.Func); ok && fn.Globals() == owner.Table {
			return fn.Definition(), nil
		}
	}
	if def, ok := owner.Function(name); ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: module %q defines no function %q", faults.ErrResolution, owner.ID, name)
}

// Rewrite applies rules to the source of owner's function name, re-parses
// the patched text, binds it to owner's table and installs it there under
// the same name. Unless idempotent is set, rules that match nothing are an
// error.
func Rewrite(ctx context.Context, owner *snapshot.Snapshot, name string, rules []config.Rule, idempotent bool) (*script.Func, error) {
	logger := ctxlog.FromContext(ctx).With("module", owner.ID, "function", name)

	def, err := current(owner, name)
	if err != nil {
		return nil, err
	}

	patched, matched := Apply(string(def.Source), rules)
	if matched == 0 && !idempotent {
		return nil, fmt.Errorf("%w: %s.%s: none of %d rules matched", faults.ErrRewrite, owner.ID, name, len(rules))
	}
	logger.Debug("Applied rewrite rules.", "rules", len(rules), "matched", matched)

	filename := fmt.Sprintf("%s#%s", owner.ID, name)
	newDef, err := script.ParseFunction(filename, hclwrite.Format([]byte(patched)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: patched source does not parse: %v", faults.ErrRewrite, owner.ID, name, err)
	}
	if newDef.Name != name {
		return nil, fmt.Errorf("%w: %s.%s: patched source defines %q instead", faults.ErrRewrite, owner.ID, name, newDef.Name)
	}
	if err := checkNames(owner, newDef); err != nil {
		return nil, err
	}

	fn := script.Bind(newDef, owner.Table)
	owner.Table.Set(name, fn)
	logger.Debug("Installed rewritten function.")
	return fn, nil
}

// Variant binds the labelled variant of owner's function name and installs
// it in place of the original.
func Variant(ctx context.Context, owner *snapshot.Snapshot, name, label string) (*script.Func, error) {
	def, err := current(owner, name)
	if err != nil {
		return nil, err
	}
	v, ok := def.Variant(label)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s has no %q variant: %w", faults.ErrRewrite, owner.ID, name, label, ErrNoVariant)
	}
	if err := checkNames(owner, v); err != nil {
		return nil, err
	}
	fn := script.Bind(v, owner.Table)
	owner.Table.Set(name, fn)
	ctxlog.FromContext(ctx).Debug("Selected function variant.", "module", owner.ID, "function", name, "variant", label)
	return fn, nil
}

// checkNames fails if def refers to a name the owner cannot resolve.
func checkNames(owner *snapshot.Snapshot, def *script.Definition) error {
	names, calls := def.Refs()
	var missing []string
	for _, n := range append(slices.Clone(names), calls...) {
		if !owner.Table.Has(n) && n != def.Name && !def.HasParam(n) {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s.%s: undefined names %s", faults.ErrRewrite, owner.ID, def.Name, strings.Join(missing, ", "))
	}
	return nil
}
