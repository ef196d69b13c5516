// Package engine implements the playbook automation engine.
//
// The engine watches a stream of user-activity events (app focus changes,
// OCR text, audio transcripts, idle and meeting transitions) plus a
// once-per-minute clock tick, matches them against the enabled playbooks'
// triggers, rate-limits admissions, and executes each admitted playbook's
// action list with a durable execution record.
//
// ARCHITECTURE:
//
// Single-Dispatcher Event Loop:
// All matching, rate-limiter updates, and execution-record creation happen
// in one goroutine (Run). This gives:
// - Deterministic trigger evaluation order (playbook insertion order,
//   first satisfying trigger within a playbook)
// - A single writer for rate-limiter state, closing the window where two
//   near-simultaneous events both pass a cooldown check
// - Simple reasoning about admission
//
// Event Processing Flow:
// 1. Events enqueued to a FIFO queue (external producers or the minute ticker)
// 2. Run() dequeues one at a time, folds the event into the context snapshot
// 3. The matcher evaluates every enabled playbook's triggers
// 4. Each match passes through the rate limiter (cooldown, daily cap)
// 5. Admitted matches persist a running execution record, then run their
//    action list in a dedicated goroutine
// 6. Completion comes back over a channel; the loop finalizes the record
//
// Action execution is the only concurrent part: different playbooks'
// executions run in parallel, actions within one execution run in declared
// order. The dispatch loop never blocks on an action.
//
// ERROR POLICY: every action failure is caught at the action boundary and
// recorded as a failed ActionResult; the execution still completes. Only
// failures to persist the execution record itself are escalated, since they
// lose audit trail. The loop logs and continues; it never crashes on a bad
// event or a misbehaving back-end.
package engine
