package store

import (
	"context"
	"fmt"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

// SavePlaybook inserts or updates a playbook definition.
// On insert, created_at is taken from the definition (or now if zero).
// On update, created_at is preserved and updated_at is bumped.
func (s *Store) SavePlaybook(ctx context.Context, pb playbook.Playbook, now time.Time) error {
	triggersJSON, err := marshalTriggers(pb.Triggers)
	if err != nil {
		return fmt.Errorf("save playbook: %w", err)
	}

	actionsJSON, err := marshalActions(pb.Actions)
	if err != nil {
		return fmt.Errorf("save playbook: %w", err)
	}

	createdAt := pb.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO playbooks
		(id, tenant, name, description, enabled, triggers_json, actions_json,
		 cooldown_minutes, max_executions_per_day, is_builtin, icon, color,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			enabled = excluded.enabled,
			triggers_json = excluded.triggers_json,
			actions_json = excluded.actions_json,
			cooldown_minutes = excluded.cooldown_minutes,
			max_executions_per_day = excluded.max_executions_per_day,
			icon = excluded.icon,
			color = excluded.color,
			updated_at = excluded.updated_at
	`,
		pb.ID,
		s.tenant,
		pb.Name,
		pb.Description,
		pb.Enabled,
		triggersJSON,
		actionsJSON,
		pb.CooldownMinutes,
		pb.MaxExecutionsPerDay,
		pb.IsBuiltin,
		pb.Icon,
		pb.Color,
		marshalTime(createdAt),
		marshalTime(now),
	)
	if err != nil {
		return fmt.Errorf("save playbook: %w", err)
	}

	return nil
}

// SeedBuiltins inserts builtin playbooks that don't already exist.
// Existing rows are left untouched, so user edits to a builtin
// (enabling it, say) survive restarts.
func (s *Store) SeedBuiltins(ctx context.Context, defs []playbook.Playbook, now time.Time) error {
	for _, pb := range defs {
		triggersJSON, err := marshalTriggers(pb.Triggers)
		if err != nil {
			return fmt.Errorf("seed builtin %s: %w", pb.ID, err)
		}
		actionsJSON, err := marshalActions(pb.Actions)
		if err != nil {
			return fmt.Errorf("seed builtin %s: %w", pb.ID, err)
		}

		_, err = s.db.ExecContext(ctx, `
			INSERT INTO playbooks
			(id, tenant, name, description, enabled, triggers_json, actions_json,
			 cooldown_minutes, max_executions_per_day, is_builtin, icon, color,
			 created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			pb.ID,
			s.tenant,
			pb.Name,
			pb.Description,
			pb.Enabled,
			triggersJSON,
			actionsJSON,
			pb.CooldownMinutes,
			pb.MaxExecutionsPerDay,
			pb.Icon,
			pb.Color,
			marshalTime(now),
			marshalTime(now),
		)
		if err != nil {
			return fmt.Errorf("seed builtin %s: %w", pb.ID, err)
		}
	}
	return nil
}

// SetEnabled toggles a playbook without rewriting its definition.
// Returns ErrNotFound if no playbook has the given ID.
func (s *Store) SetEnabled(ctx context.Context, id string, enabled bool, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE playbooks SET enabled = ?, updated_at = ?
		WHERE id = ? AND tenant = ?
	`, enabled, marshalTime(now), id, s.tenant)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set enabled: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("set enabled %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeletePlaybook removes a user-defined playbook and, via the foreign key
// cascade, its execution history. Builtins cannot be deleted, only disabled.
func (s *Store) DeletePlaybook(ctx context.Context, id string) error {
	var isBuiltin bool
	err := s.db.QueryRowContext(ctx, `
		SELECT is_builtin FROM playbooks WHERE id = ? AND tenant = ?
	`, id, s.tenant).Scan(&isBuiltin)
	if err != nil {
		if isNoRows(err) {
			return fmt.Errorf("delete playbook %s: %w", id, ErrNotFound)
		}
		return fmt.Errorf("delete playbook: %w", err)
	}
	if isBuiltin {
		return fmt.Errorf("delete playbook %s: %w", id, ErrBuiltin)
	}

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM playbooks WHERE id = ? AND tenant = ?
	`, id, s.tenant); err != nil {
		return fmt.Errorf("delete playbook: %w", err)
	}
	return nil
}

// InsertExecution writes a new execution record.
// Called with status running before any action executes.
func (s *Store) InsertExecution(ctx context.Context, exec playbook.Execution) error {
	triggerJSON, err := marshalTrigger(exec.TriggeredBy)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	resultsJSON, err := marshalResults(exec.ActionResults)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	var completedAt any
	if exec.CompletedAt != nil {
		completedAt = marshalTime(*exec.CompletedAt)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO playbook_executions
		(id, playbook_id, started_at, completed_at, status, triggered_by, action_results, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		exec.ID,
		exec.PlaybookID,
		marshalTime(exec.StartedAt),
		completedAt,
		string(exec.Status),
		triggerJSON,
		resultsJSON,
		exec.Error,
	)
	if err != nil {
		return fmt.Errorf("insert execution: %w", err)
	}

	return nil
}

// FinishExecution moves a running execution to a terminal state.
// Rows already terminal are left untouched: the WHERE clause only matches
// status running, so a late or duplicate finish is a silent no-op.
func (s *Store) FinishExecution(
	ctx context.Context,
	id string,
	status playbook.ExecutionStatus,
	completedAt time.Time,
	results []playbook.ActionResult,
	errMsg string,
) error {
	if !status.Terminal() {
		return fmt.Errorf("finish execution %s: status %q is not terminal", id, status)
	}

	resultsJSON, err := marshalResults(results)
	if err != nil {
		return fmt.Errorf("finish execution: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE playbook_executions
		SET status = ?, completed_at = ?, action_results = ?, error = ?
		WHERE id = ? AND status = 'running'
	`,
		string(status),
		marshalTime(completedAt),
		resultsJSON,
		errMsg,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish execution: %w", err)
	}

	return nil
}

// SweepStaleRunning marks running executions older than the cutoff as
// failed. Run at startup: a running row from a previous process is
// orphaned and will never be finished by its executor.
func (s *Store) SweepStaleRunning(ctx context.Context, olderThan, sweptAt time.Time, errMsg string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE playbook_executions
		SET status = 'failed', completed_at = ?, error = ?
		WHERE status = 'running' AND started_at < ?
	`,
		marshalTime(sweptAt),
		errMsg,
		marshalTime(olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep stale running: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sweep stale running: rows affected: %w", err)
	}
	return int(n), nil
}
