package playbook

import (
	"encoding/json"
	"fmt"
	"time"
)

// Playbook is a named automation rule. Triggers are ORed: any one satisfied
// trigger activates the playbook. Actions run in declared order.
type Playbook struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Enabled     bool     `json:"enabled"`
	Triggers    Triggers `json:"triggers"`
	Actions     Actions  `json:"actions"`

	// CooldownMinutes is the minimum time between two activations.
	// MaxExecutionsPerDay caps activations per local calendar day.
	// Nil means no limit.
	CooldownMinutes     *uint `json:"cooldown_minutes,omitempty"`
	MaxExecutionsPerDay *uint `json:"max_executions_per_day,omitempty"`

	IsBuiltin bool   `json:"is_builtin,omitempty"`
	Icon      string `json:"icon,omitempty"`
	Color     string `json:"color,omitempty"`

	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// ExecutionStatus is the lifecycle state of a playbook run.
//
// running is entered at admission, before any action executes. completed is
// reached once every action result is collected, regardless of individual
// action success. failed and cancelled are engine-level outcomes; terminal
// states are immutable.
type ExecutionStatus string

const (
	StatusRunning   ExecutionStatus = "running"
	StatusCompleted ExecutionStatus = "completed"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status is a final state.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Execution is the record of one activation of a playbook.
type Execution struct {
	ID          string          `json:"id"`
	PlaybookID  string          `json:"playbook_id"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Status      ExecutionStatus `json:"status"`

	// TriggeredBy is the specific trigger instance that fired, not the
	// playbook's whole trigger list.
	TriggeredBy Trigger `json:"triggered_by"`

	ActionResults []ActionResult `json:"action_results"`
	Error         string         `json:"error,omitempty"`
}

// ActionResult captures the outcome of one action within an execution.
// Duration is recorded regardless of success.
type ActionResult struct {
	Action     Action          `json:"action"`
	Success    bool            `json:"success"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	DurationMS int64           `json:"duration_ms"`
}

func (e *Execution) UnmarshalJSON(data []byte) error {
	type shadow struct {
		ID            string          `json:"id"`
		PlaybookID    string          `json:"playbook_id"`
		StartedAt     time.Time       `json:"started_at"`
		CompletedAt   *time.Time      `json:"completed_at"`
		Status        ExecutionStatus `json:"status"`
		TriggeredBy   json.RawMessage `json:"triggered_by"`
		ActionResults []ActionResult  `json:"action_results"`
		Error         string          `json:"error"`
	}

	var s shadow
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode execution: %w", err)
	}

	var trig Trigger
	if len(s.TriggeredBy) > 0 {
		t, err := UnmarshalTrigger(s.TriggeredBy)
		if err != nil {
			return fmt.Errorf("execution triggered_by: %w", err)
		}
		trig = t
	}

	*e = Execution{
		ID:            s.ID,
		PlaybookID:    s.PlaybookID,
		StartedAt:     s.StartedAt,
		CompletedAt:   s.CompletedAt,
		Status:        s.Status,
		TriggeredBy:   trig,
		ActionResults: s.ActionResults,
		Error:         s.Error,
	}
	return nil
}

func (r *ActionResult) UnmarshalJSON(data []byte) error {
	type shadow struct {
		Action     json.RawMessage `json:"action"`
		Success    bool            `json:"success"`
		Result     json.RawMessage `json:"result"`
		Error      string          `json:"error"`
		DurationMS int64           `json:"duration_ms"`
	}

	var s shadow
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode action result: %w", err)
	}

	var act Action
	if len(s.Action) > 0 {
		a, err := UnmarshalAction(s.Action)
		if err != nil {
			return fmt.Errorf("action result action: %w", err)
		}
		act = a
	}

	*r = ActionResult{
		Action:     act,
		Success:    s.Success,
		Result:     s.Result,
		Error:      s.Error,
		DurationMS: s.DurationMS,
	}
	return nil
}
