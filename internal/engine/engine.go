package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

// Engine is the single-dispatcher playbook event loop.
//
// The engine processes activity events in FIFO order, matches them against
// playbook triggers, admits matches through the rate limiter, and hands
// admitted activations to executor goroutines. Action execution is the only
// concurrent part; matching, admission, state folding, and record lifecycle
// all happen in the Run goroutine.
//
// Thread-safety model:
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - CancelExecution(): safe from any goroutine
//   - ReloadPlaybooks(): safe from any goroutine (routed through the queue)
type Engine struct {
	recorder  *Recorder
	executor  *Executor
	clock     Clock
	idgen     IDGenerator
	queue     *eventQueue
	playbooks []*CompiledPlaybook // Evaluation order NEVER changes between reloads
	limiter   *RateLimiter
	snap      *snapshot

	// Outcomes flow back from executor goroutines to the Run loop,
	// which owns all record finalization.
	done chan outcome
	wg   sync.WaitGroup

	// cancels is keyed by execution ID; guarded separately because
	// CancelExecution is called from outside the Run goroutine.
	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc
}

// outcome is the result of one executor goroutine, sent back to the Run
// loop for finalization.
type outcome struct {
	execID      string
	playbookID  string
	status      playbook.ExecutionStatus
	results     []playbook.ActionResult
	completedAt time.Time
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithClock replaces the wall clock. Tests pass a settable fake so cooldown
// and daily-cap behavior can be driven without sleeping.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator replaces the execution ID source.
// Use NewFixedGenerator in tests for predictable IDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.idgen = g
	}
}

// New creates an Engine over the given recorder, action backends, and
// playbook definitions.
//
// The defs slice order is preserved for deterministic trigger evaluation.
// Definitions that fail to compile cleanly run with their bad triggers
// dormant rather than rejecting the whole set.
func New(rec *Recorder, exec *Executor, defs []playbook.Playbook, opts ...Option) *Engine {
	e := &Engine{
		recorder:  rec,
		executor:  exec,
		clock:     SystemClock{},
		idgen:     UUIDv7Generator{},
		queue:     newEventQueue(),
		playbooks: compilePlaybooks(defs),
		limiter:   NewRateLimiter(),
		snap:      newSnapshot(),
		done:      make(chan outcome, 16),
		cancels:   make(map[string]context.CancelFunc),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// ReloadPlaybooks swaps the engine's playbook set. The swap is routed
// through the event queue so it lands between dispatch items: events already
// queued ahead of the reload see the old set, events behind it the new one.
// Rate limiter state survives the swap, so a reload cannot be used to dodge
// a cooldown.
//
// Thread-safe: may be called from any goroutine.
// Returns false if the engine has been stopped.
func (e *Engine) ReloadPlaybooks(defs []playbook.Playbook) bool {
	return e.queue.Enqueue(Event{Type: EventReload, Playbooks: defs})
}

// CancelExecution requests cooperative cancellation of a running execution.
// The executor observes the cancel between actions; the action in flight
// runs to completion and the record finishes as cancelled with the results
// collected so far.
//
// Thread-safe: may be called from any goroutine.
func (e *Engine) CancelExecution(execID string) error {
	e.cancelMu.Lock()
	cancel, ok := e.cancels[execID]
	e.cancelMu.Unlock()
	if !ok {
		return &EngineError{
			Code:        ErrCodeUnknownExecution,
			Message:     "no running execution with that ID",
			ExecutionID: execID,
		}
	}
	cancel()
	return nil
}

// Run starts the dispatch loop.
// Blocks until context is cancelled or Stop() is called.
//
// CRITICAL: Must be called from exactly ONE goroutine. Matching, admission,
// and record lifecycle all happen here; only action execution runs
// concurrently, and its outcomes are funneled back through e.done so
// finalization stays in this goroutine too.
//
// SHUTDOWN: On cancellation the queue closes (unprocessed events are
// dropped), but in-flight executions run to completion and their records
// are finalized before Run returns. No execution is left as running.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting", "playbooks", len(e.playbooks))

	for {
		// Try non-blocking dequeue first
		ev, ok := e.queue.TryDequeue()
		if ok {
			e.process(ctx, ev)
			continue
		}

		// No event ready - wait for an event, an outcome, or cancellation
		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.queue.Close()
			e.drain()
			return ctx.Err()

		case out := <-e.done:
			e.finalize(ctx, out)

		case <-e.queue.Wait():
			// Signal received - loop back to TryDequeue.
			// The signal channel closes when the queue is closed,
			// which makes this case fire immediately.
			if e.queue.Closed() && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed")
				e.drain()
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine.
// Closes the event queue, which will cause Run() to return after
// in-flight executions finish.
func (e *Engine) Stop() {
	e.queue.Close()
}

// drain waits for in-flight executor goroutines and finalizes their
// outcomes. Finalization uses a background context: the run context is
// already cancelled, and terminal records must still be written.
func (e *Engine) drain() {
	go func() {
		e.wg.Wait()
		close(e.done)
	}()
	for out := range e.done {
		e.finalize(context.Background(), out)
	}
}

// process handles one dequeued item.
// CRITICAL: Called only from the Run() goroutine.
func (e *Engine) process(ctx context.Context, ev Event) {
	if ev.Type == EventReload {
		e.playbooks = compilePlaybooks(ev.Playbooks)
		slog.Info("playbooks reloaded", "count", len(e.playbooks))
		return
	}

	// Fold the event into the activity snapshot BEFORE matching, so a
	// context trigger listing the app that just gained focus matches the
	// focus event itself.
	e.snap.apply(ev)

	now := e.clock.Now()
	matches := matchPlaybooks(ev, e.snap, e.playbooks, now)
	for _, m := range matches {
		if !e.limiter.Admit(&m.Playbook.Def, now) {
			slog.Debug("activation suppressed by rate limit",
				"playbook_id", m.Playbook.Def.ID,
				"playbook", m.Playbook.Def.Name,
			)
			continue
		}
		e.startExecution(ctx, m, now)
	}
}

// startExecution persists the running record and launches the executor
// goroutine for one admitted activation.
//
// If the running record cannot be persisted the activation is abandoned:
// an execution without an audit record would be invisible to history, and
// the cooldown already recorded by Admit still suppresses immediate
// re-activation.
func (e *Engine) startExecution(ctx context.Context, m Match, now time.Time) {
	id := e.idgen.Generate()
	exec := NewExecution(id, &m.Playbook.Def, m.Trigger, now)

	if err := e.recorder.Begin(ctx, exec); err != nil {
		slog.Error("abandoning activation: running record not persisted",
			"playbook_id", m.Playbook.Def.ID,
			"execution_id", id,
			"error", err,
		)
		return
	}

	slog.Info("execution started",
		"execution_id", id,
		"playbook_id", m.Playbook.Def.ID,
		"playbook", m.Playbook.Def.Name,
		"actions", len(m.Playbook.Def.Actions),
	)

	// Engine shutdown does not cancel in-flight executions; only an
	// explicit CancelExecution does. WithoutCancel keeps the run
	// context's values without inheriting its cancellation.
	execCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancelMu.Lock()
	e.cancels[id] = cancel
	e.cancelMu.Unlock()

	actions := m.Playbook.Def.Actions
	playbookID := m.Playbook.Def.ID

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		results, cancelled := e.executor.Execute(execCtx, actions)

		// Partial action failure does not fail the execution; the record
		// completes and the per-action results carry the failures.
		status := playbook.StatusCompleted
		if cancelled {
			status = playbook.StatusCancelled
		}

		e.done <- outcome{
			execID:      id,
			playbookID:  playbookID,
			status:      status,
			results:     results,
			completedAt: e.clock.Now(),
		}
	}()
}

// finalize writes the terminal record for one finished execution.
// CRITICAL: Called only from the Run() goroutine.
func (e *Engine) finalize(ctx context.Context, out outcome) {
	e.cancelMu.Lock()
	if cancel, ok := e.cancels[out.execID]; ok {
		cancel()
		delete(e.cancels, out.execID)
	}
	e.cancelMu.Unlock()

	failed := 0
	for _, r := range out.results {
		if !r.Success {
			failed++
		}
	}

	e.recorder.Finish(ctx, out.execID, out.status, out.completedAt, out.results, "")

	slog.Info("execution finished",
		"execution_id", out.execID,
		"playbook_id", out.playbookID,
		"status", out.status,
		"actions", len(out.results),
		"failed_actions", failed,
	)
}

// QueueLen returns the current number of pending events.
// Useful for monitoring and testing.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Playbooks returns the currently loaded playbook definitions in
// evaluation order. Used for introspection and testing.
func (e *Engine) Playbooks() []playbook.Playbook {
	defs := make([]playbook.Playbook, len(e.playbooks))
	for i, cp := range e.playbooks {
		defs[i] = cp.Def
	}
	return defs
}

// Limiter exposes the rate limiter for diagnostics and testing.
func (e *Engine) Limiter() *RateLimiter {
	return e.limiter
}

// RunTicker emits one EventTick per minute boundary until ctx is done.
// The tick carries the boundary time, so a dispatch delayed past the
// minute still evaluates cron triggers against the intended minute.
func (e *Engine) RunTicker(ctx context.Context) {
	now := e.clock.Now()
	next := now.Truncate(time.Minute).Add(time.Minute)

	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			e.Enqueue(Event{Type: EventTick, Time: next})
			next = next.Add(time.Minute)
			timer.Reset(time.Until(next))
		}
	}
}
