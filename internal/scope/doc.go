// Package scope provides the mutable symbol tables used by module snapshots
// and by natively compiled functions.
//
// # Purpose
//
// A Table maps names to symbol.Object values. Every snapshot owns one Table,
// and every natively compiled function owns a private Table cloned from its
// defining module at compile time. The rebinding stage writes accelerated
// objects into all of them.
//
// # Concurrency Model
//
// Tables are guarded by a sync.RWMutex. Writes happen while the pipeline runs
// (single-threaded); after publication tables are read concurrently by every
// caller of a compiled function. The hcl.EvalContext derived from a table is
// built lazily and cached until the next Set.
package scope
