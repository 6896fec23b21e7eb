// Package ledger provides an optional SQLite journal of ratchet runs.
//
// Each completed, non-dry check appends one run record with its
// violations. The ledger is an audit aid only: the status file remains the
// ground truth, and failing to write the ledger never fails a check.
//
// # Patterns
//
// Idempotent writes
//   - runs are keyed by a UUIDv7 id; re-recording the same id is a no-op
//
// Logical ordering
//   - runs carry a seq INTEGER assigned at insert time; every query orders
//     by seq, never by the wall-clock recorded_at column
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000ms
//   - foreign_keys=ON
package ledger
