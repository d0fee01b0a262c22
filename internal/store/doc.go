// Package store provides SQLite-backed durable storage for evaluation runs.
//
// The store implements an append-only log with:
//   - Runs: one row per model and run token
//   - Evaluations: one row per evaluated set of draws
//   - Quantities: the named model quantities of each evaluation
//
// # Identity and Ordering
//
// Evaluation IDs are content addressed (ir.EvaluationID), so writes are
// idempotent: recording the same evaluation twice is a no-op. Ordering
// within a run uses the engine's seq (logical clock), never timestamps,
// and every multi-row query orders by seq ASC, id ASC COLLATE BINARY.
//
// Draws and quantity values are stored as canonical JSON, whose shortest
// round-trip float form reads back bit-identical.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
