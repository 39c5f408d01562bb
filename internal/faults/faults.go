// Package faults defines the error kinds raised by the stages of the
// acceleration pipeline. Stages wrap one of these sentinels with %w so that
// callers can classify a failure with errors.Is regardless of how much
// context was added on the way up.
package faults

import "errors"

var (
	// ErrResolution is returned when a module, symbol, or alias target
	// cannot be located.
	ErrResolution = errors.New("resolution error")

	// ErrExecution is returned when a module's top-level code fails while
	// a snapshot is being built.
	ErrExecution = errors.New("execution error")

	// ErrRewrite is returned when a textual rewrite does not apply or the
	// patched source does not re-parse.
	ErrRewrite = errors.New("rewrite error")

	// ErrCompilation is returned when the backend rejects a callable even in
	// fallback mode.
	ErrCompilation = errors.New("compilation error")

	// ErrMaterialization is returned when a literal that looked rectangular
	// fails conversion to a dense array.
	ErrMaterialization = errors.New("materialization error")
)

var kinds = []error{ErrResolution, ErrExecution, ErrRewrite, ErrCompilation, ErrMaterialization}

// Kind returns the sentinel wrapped by err, or nil if err carries none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
