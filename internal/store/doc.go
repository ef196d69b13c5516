// Package store provides SQLite-backed durable storage for playbook
// definitions and execution history.
//
// Two tables:
//   - playbooks: definitions, with triggers and actions stored as JSON
//     columns so the closed union encoding is the single source of truth
//   - playbook_executions: the execution audit trail, one row per
//     activation, running rows updated in place to a terminal status
//
// # Invariants
//
//   - Definition order is stable: listings order by created_at then id,
//     so trigger evaluation order survives restarts
//   - Terminal execution rows are immutable: FinishExecution only touches
//     rows still in the running state
//   - Seeding builtins is idempotent via ON CONFLICT DO NOTHING
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Timestamps are stored as RFC 3339 TEXT in UTC.
package store
