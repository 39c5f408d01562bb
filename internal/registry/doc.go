// Package registry holds the host builtins: Go functions that module code
// can call by name, such as sqrt, sum or the root-finding solvers.
//
// Builtin modules implement Module and add their functions in Register.
// Registration panics on duplicates, since two builtins with the same name
// is a programming error in the binary, not a runtime condition. Validate
// checks the assembled registry before the pipeline seeds it into snapshots
// and into the rebinding ledger.
package registry
