package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/reflexhq/reflex/internal/playbook"
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

const playbookColumns = `id, name, description, enabled, triggers_json, actions_json,
	cooldown_minutes, max_executions_per_day, is_builtin, icon, color,
	created_at, updated_at`

// GetPlaybook retrieves a single playbook by ID.
// Returns ErrNotFound if no playbook has the given ID.
func (s *Store) GetPlaybook(ctx context.Context, id string) (playbook.Playbook, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+playbookColumns+`
		FROM playbooks
		WHERE id = ? AND tenant = ?
	`, id, s.tenant)

	pb, err := scanPlaybook(row)
	if err != nil {
		if isNoRows(err) {
			return playbook.Playbook{}, fmt.Errorf("get playbook %s: %w", id, ErrNotFound)
		}
		return playbook.Playbook{}, fmt.Errorf("get playbook: %w", err)
	}
	return pb, nil
}

// ListPlaybooks returns all playbooks for the tenant.
// Ordered by created_at then id: definition order is stable across
// restarts, which keeps trigger evaluation order deterministic.
func (s *Store) ListPlaybooks(ctx context.Context) ([]playbook.Playbook, error) {
	return s.listPlaybooks(ctx, `
		SELECT `+playbookColumns+`
		FROM playbooks
		WHERE tenant = ?
		ORDER BY created_at ASC, id ASC
	`)
}

// ListEnabled returns only enabled playbooks, in the same stable order
// as ListPlaybooks. This is the set the engine evaluates.
func (s *Store) ListEnabled(ctx context.Context) ([]playbook.Playbook, error) {
	return s.listPlaybooks(ctx, `
		SELECT `+playbookColumns+`
		FROM playbooks
		WHERE tenant = ? AND enabled = 1
		ORDER BY created_at ASC, id ASC
	`)
}

func (s *Store) listPlaybooks(ctx context.Context, query string) ([]playbook.Playbook, error) {
	rows, err := s.db.QueryContext(ctx, query, s.tenant)
	if err != nil {
		return nil, fmt.Errorf("query playbooks: %w", err)
	}
	defer rows.Close()

	var pbs []playbook.Playbook
	for rows.Next() {
		pb, err := scanPlaybook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan playbook: %w", err)
		}
		pbs = append(pbs, pb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playbooks: %w", err)
	}

	// Return empty slice instead of nil
	if pbs == nil {
		pbs = []playbook.Playbook{}
	}

	return pbs, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan helpers.
type scanner interface {
	Scan(dest ...any) error
}

func scanPlaybook(row scanner) (playbook.Playbook, error) {
	var (
		pb           playbook.Playbook
		triggersJSON string
		actionsJSON  string
		cooldown     sql.NullInt64
		maxPerDay    sql.NullInt64
		createdAt    string
		updatedAt    string
	)

	err := row.Scan(
		&pb.ID,
		&pb.Name,
		&pb.Description,
		&pb.Enabled,
		&triggersJSON,
		&actionsJSON,
		&cooldown,
		&maxPerDay,
		&pb.IsBuiltin,
		&pb.Icon,
		&pb.Color,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return playbook.Playbook{}, err
	}

	if pb.Triggers, err = unmarshalTriggers(triggersJSON); err != nil {
		return playbook.Playbook{}, err
	}
	if pb.Actions, err = unmarshalActions(actionsJSON); err != nil {
		return playbook.Playbook{}, err
	}

	if cooldown.Valid {
		v := uint(cooldown.Int64)
		pb.CooldownMinutes = &v
	}
	if maxPerDay.Valid {
		v := uint(maxPerDay.Int64)
		pb.MaxExecutionsPerDay = &v
	}

	if pb.CreatedAt, err = unmarshalTime(createdAt); err != nil {
		return playbook.Playbook{}, err
	}
	if pb.UpdatedAt, err = unmarshalTime(updatedAt); err != nil {
		return playbook.Playbook{}, err
	}

	return pb, nil
}

const executionColumns = `id, playbook_id, started_at, completed_at, status,
	triggered_by, action_results, error`

// GetExecution retrieves a single execution record by ID.
// Returns ErrNotFound if no execution has the given ID.
func (s *Store) GetExecution(ctx context.Context, id string) (playbook.Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+executionColumns+`
		FROM playbook_executions
		WHERE id = ?
	`, id)

	exec, err := scanExecution(row)
	if err != nil {
		if isNoRows(err) {
			return playbook.Execution{}, fmt.Errorf("get execution %s: %w", id, ErrNotFound)
		}
		return playbook.Execution{}, fmt.Errorf("get execution: %w", err)
	}
	return exec, nil
}

// ListExecutions returns execution records, most recent first.
// An empty playbookID lists across all playbooks. limit caps the result
// (0 means no cap); offset skips past records for pagination.
func (s *Store) ListExecutions(ctx context.Context, playbookID string, limit, offset int) ([]playbook.Execution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM playbook_executions
	`
	var args []any
	if playbookID != "" {
		query += ` WHERE playbook_id = ?`
		args = append(args, playbookID)
	}
	query += ` ORDER BY started_at DESC, id ASC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var execs []playbook.Execution
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, exec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}

	// Return empty slice instead of nil
	if execs == nil {
		execs = []playbook.Execution{}
	}

	return execs, nil
}

// CountRunning returns the number of executions currently in the running
// state. Used for monitoring and for startup sweep diagnostics.
func (s *Store) CountRunning(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM playbook_executions WHERE status = 'running'
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count running: %w", err)
	}
	return n, nil
}

func scanExecution(row scanner) (playbook.Execution, error) {
	var (
		exec        playbook.Execution
		startedAt   string
		completedAt sql.NullString
		status      string
		triggerJSON string
		resultsJSON string
	)

	err := row.Scan(
		&exec.ID,
		&exec.PlaybookID,
		&startedAt,
		&completedAt,
		&status,
		&triggerJSON,
		&resultsJSON,
		&exec.Error,
	)
	if err != nil {
		return playbook.Execution{}, err
	}

	exec.Status = playbook.ExecutionStatus(status)

	if exec.StartedAt, err = unmarshalTime(startedAt); err != nil {
		return playbook.Execution{}, err
	}
	if completedAt.Valid {
		t, err := unmarshalTime(completedAt.String)
		if err != nil {
			return playbook.Execution{}, err
		}
		exec.CompletedAt = &t
	}

	if exec.TriggeredBy, err = unmarshalTrigger(triggerJSON); err != nil {
		return playbook.Execution{}, err
	}
	if exec.ActionResults, err = unmarshalResults(resultsJSON); err != nil {
		return playbook.Execution{}, err
	}

	return exec, nil
}
