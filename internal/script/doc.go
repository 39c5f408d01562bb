// Package script implements the module language: HCL files whose top level
// holds attribute definitions and "function" blocks.
//
// A function block looks like this:
//
//	function "Reynolds" {
//	  params   = [rho, V, D, mu]
//	  defaults = { mu = 1e-3 }
//	  result   = rho * V * D / mu
//	}
//
// Optional attributes are kwargs (accept a trailing object of keyword
// arguments, visible as the local "kwargs"), mode ("native", "vectorize" or
// "fallback") and on_fail (a message template prefixed to any error raised
// by result). A function may declare alternative definitions in nested
// variant blocks, selected by name when the host asks for them.
//
// Parsed definitions are bound to a scope.Table with Bind. The resulting
// Func evaluates its result with the HCL evaluator, resolving free names
// through the table at call time.
package script
