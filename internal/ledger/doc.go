// Package ledger is the decision and taste ledger: an append-only log of
// decision events, feedback copies, taste signals and rescue invocations,
// plus the derived per-meal taste cache.
//
// Decision rows are never mutated. Resolving a pending decision inserts a
// feedback copy that shares the original context hash and points at it via
// ParentID; CurrentStatus folds a root and its copies into the present state.
// Taste signals are exposed through an insert-only interface and the SQLite
// store rejects UPDATE and DELETE on them with triggers.
//
// Two implementations are provided. MemoryStore backs tests and embedding
// callers; SQLiteStore backs the CLI and serializes writers across processes
// with a lock file.
package ledger
