// Package ir provides the shared value types for the Zeeman absorption model.
//
// This package contains type definitions plus canonical serialization and
// hashing. All other internal packages import ir; ir imports nothing
// internal, so it stays the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - Per-cloud quantities are plain []float64 indexed 0..N-1 along the cloud axis
//   - Channel-by-cloud values use Matrix (row = channel, column = cloud)
//   - Canonical JSON admits finite floats only; NaN and Inf are rejected
//   - All JSON and YAML tags use snake_case
package ir
