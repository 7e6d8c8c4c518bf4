// Package store provides SQLite-backed durable storage for simulation runs.
//
// The store is an append-only log with:
//   - Runs: one row per simulation, with its final counters
//   - Messages: every routed envelope, keyed by (run_id, seq)
//   - Deliveries: every DELIVERY_COMPLETE seen by the reporter
//
// # Ordering
//
// All ordering uses seq (logical clock), never wall time. Message reads
// are ORDER BY seq ASC and delivery reads ORDER BY id ASC, so a stored run
// reads back identically every time.
//
// # Integrity
//
// Each message row carries the SHA-256 of its canonical snapshot
// (see internal/canon). VerifyRun recomputes them.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
