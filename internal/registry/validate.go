package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/accelgrid/internal/ctxlog"
)

// reserved names are bound by the module language itself.
var reserved = map[string]bool{
	"true":     true,
	"false":    true,
	"null":     true,
	"exports":  true,
	"internal": true,
	"kwargs":   true,
}

// Validate checks that every builtin can be referenced from module code.
func (r *Registry) Validate(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range r.order {
		b := r.builtins[name]
		if !hclsyntax.ValidIdentifier(name) {
			errs = append(errs, fmt.Sprintf("builtin '%s': not a valid identifier", name))
		}
		if reserved[name] {
			errs = append(errs, fmt.Sprintf("builtin '%s': name is reserved by the module language", name))
		}
		if b.fn == nil {
			errs = append(errs, fmt.Sprintf("builtin '%s': no implementation", name))
		}
		if b.arity < Variadic {
			errs = append(errs, fmt.Sprintf("builtin '%s': invalid arity %d", name, b.arity))
		}
		if b.arity == Variadic {
			logger.Debug("Builtin is variadic; arity is checked by the implementation.", "builtin", name)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validated.", "builtins", len(r.order))
	return nil
}
