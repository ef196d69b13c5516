package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

// ExecutionStore is the slice of the storage interface the recorder needs.
// Implemented by *store.Store; tests use in-memory fakes.
type ExecutionStore interface {
	InsertExecution(ctx context.Context, exec playbook.Execution) error
	FinishExecution(ctx context.Context, id string, status playbook.ExecutionStatus, completedAt time.Time, results []playbook.ActionResult, errMsg string) error
}

// Recorder manages the execution record lifecycle.
//
// State machine: running -> completed | failed | cancelled. The running
// record is persisted BEFORE any action executes, so a crash mid-execution
// leaves a durable, inspectable row; the startup sweep reconciles such rows
// to failed after a grace period. Terminal states are immutable.
type Recorder struct {
	store ExecutionStore
}

func NewRecorder(store ExecutionStore) *Recorder {
	return &Recorder{store: store}
}

// Begin persists a new execution in the running state. Failure here is an
// engine-level fault: the activation is abandoned, because executing
// without an audit record would make the run invisible to the history.
func (r *Recorder) Begin(ctx context.Context, exec playbook.Execution) error {
	exec.Status = playbook.StatusRunning
	if err := r.store.InsertExecution(ctx, exec); err != nil {
		return &EngineError{
			Code:        ErrCodePersistFailed,
			Message:     "persist running execution record",
			PlaybookID:  exec.PlaybookID,
			ExecutionID: exec.ID,
			Err:         err,
		}
	}
	return nil
}

// Finish moves an execution to a terminal state with its collected action
// results. Persistence failure is escalated by logging: the execution
// already happened, so the only loss is audit trail.
func (r *Recorder) Finish(
	ctx context.Context,
	execID string,
	status playbook.ExecutionStatus,
	completedAt time.Time,
	results []playbook.ActionResult,
	errMsg string,
) {
	if !status.Terminal() {
		slog.Error("refusing to finish execution with non-terminal status",
			"execution_id", execID,
			"status", status,
		)
		return
	}

	if err := r.store.FinishExecution(ctx, execID, status, completedAt, results, errMsg); err != nil {
		slog.Error("failed to persist execution outcome; audit trail lost",
			"execution_id", execID,
			"status", status,
			"error", err,
		)
	}
}

// NewExecution builds the initial record for an admitted match.
func NewExecution(id string, def *playbook.Playbook, trigger playbook.Trigger, startedAt time.Time) playbook.Execution {
	return playbook.Execution{
		ID:          id,
		PlaybookID:  def.ID,
		StartedAt:   startedAt,
		Status:      playbook.StatusRunning,
		TriggeredBy: trigger,
	}
}

// StaleSweeper marks executions stuck in running as failed. Wired at daemon
// startup: any record still running from a previous process is, by
// definition, orphaned.
type StaleSweeper interface {
	SweepStaleRunning(ctx context.Context, olderThan, sweptAt time.Time, errMsg string) (int, error)
}

// SweepStale reconciles orphaned running records older than grace.
func SweepStale(ctx context.Context, s StaleSweeper, now time.Time, grace time.Duration) error {
	cutoff := now.Add(-grace)
	n, err := s.SweepStaleRunning(ctx, cutoff, now, "orphaned by engine restart")
	if err != nil {
		return fmt.Errorf("sweep stale executions: %w", err)
	}
	if n > 0 {
		slog.Info("swept stale running executions", "count", n, "older_than", cutoff)
	}
	return nil
}
