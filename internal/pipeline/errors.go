package pipeline

import (
	"fmt"
	"strings"
)

// Stage names a pipeline stage.
type Stage string

// Pipeline stages, in execution order.
const (
	StageLoad        Stage = "load"
	StageRewrite     Stage = "rewrite"
	StageCompile     Stage = "compile"
	StageMaterialize Stage = "materialize"
	StageRebind      Stage = "rebind"
	StagePublish     Stage = "publish"
)

// Error is the single failure a run reports. Module and Symbol are empty
// when the failure is not tied to one.
type Error struct {
	Stage  Stage
	Module string
	Symbol string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pipeline failed at %s stage", e.Stage)
	if e.Module != "" {
		fmt.Fprintf(&b, " in module %q", e.Module)
	}
	if e.Symbol != "" {
		fmt.Fprintf(&b, " for %q", e.Symbol)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }
