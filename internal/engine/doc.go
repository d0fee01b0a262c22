// Package engine runs forward-model evaluations and records them.
//
// An Evaluator binds one model.Model to a run: a run token, a logical
// clock and an optional Recorder (normally the SQLite store). Every
// evaluation is stamped with the run token and the next clock value, and
// identified by ir.EvaluationID, so recording is idempotent and runs can
// be re-read in a deterministic order.
//
// # Ordering
//
// All evaluations are stamped with a monotonic seq from the clock, never a
// wall-clock timestamp. EvaluateBatch reserves seq values in input order
// before fanning out, so the seq of each draw does not depend on goroutine
// scheduling and results come back in input order.
//
// # Concurrency
//
// The model is immutable and reentrant; EvaluateBatch evaluates up to the
// configured number of draws at once with an errgroup. The first failure
// cancels the remaining work.
package engine
