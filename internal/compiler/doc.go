// Package compiler is the acceleration backend.
//
// # Modes
//
// Compile first tries native compilation: the function's expression tree is
// translated once into a tree of Go closures. Parameters become frame slots,
// conditionals and logical operators evaluate lazily, and every free name is
// looked up in the function's private scope on each call. Because that
// scope belongs to the compiled function alone, the rebinding stage can point
// a function's callees at their compiled counterparts without touching the
// module that defined it.
//
// Definitions using constructs the native path does not handle (for
// expressions, splats, object constructors, interpolated templates, argument
// expansion, keyword capture, null defaults) fall back to permissive mode,
// which calls the interpreted function and resolves names through its
// module's table. Both modes share one call signature.
//
// # Shapes
//
// Vectorize wraps the scalar kernel so it applies element-wise over list and
// tuple arguments, broadcasting scalars.
//
// # Caching
//
// Compiled programs are independent of the scope they run against, so a
// Compiler can reuse them across runs. The cache is consulted only when
// Options.Cache is set; by default every call compiles from scratch.
package compiler
