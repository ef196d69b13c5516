package playbook

import (
	"encoding/json"
	"fmt"
)

// ActionType is the JSON type tag distinguishing action variants.
type ActionType string

const (
	ActionTypeNotify         ActionType = "notify"
	ActionTypeSummarize      ActionType = "summarize"
	ActionTypeFocusMode      ActionType = "focus_mode"
	ActionTypeRunPipe        ActionType = "run_pipe"
	ActionTypeTag            ActionType = "tag"
	ActionTypeWebhook        ActionType = "webhook"
	ActionTypeStartRecording ActionType = "start_recording"
	ActionTypeStopRecording  ActionType = "stop_recording"
)

// Action is a side-effecting operation executed when a playbook activates.
// Actions run in declared order; one action's failure never prevents the
// next from running.
type Action interface {
	ActionType() ActionType
}

// SummaryFocus narrows what a summary action reports on.
type SummaryFocus string

const (
	FocusAll         SummaryFocus = "all"
	FocusActionItems SummaryFocus = "action_items"
	FocusDecisions   SummaryFocus = "decisions"
	FocusKeyPoints   SummaryFocus = "key_points"
)

// SummaryOutput is where a generated summary is delivered.
type SummaryOutput string

const (
	OutputNotification SummaryOutput = "notification"
	OutputClipboard    SummaryOutput = "clipboard"
	OutputPipe         SummaryOutput = "pipe"
)

// HTTPMethod is the verb for webhook actions.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodDelete HTTPMethod = "DELETE"
)

// NotificationButton is an interactive button on a notification.
type NotificationButton struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// NotifyAction sends a notification to the user.
type NotifyAction struct {
	Title      string               `json:"title"`
	Message    string               `json:"message"`
	Actions    []NotificationButton `json:"actions,omitempty"`
	Persistent *bool                `json:"persistent,omitempty"`
}

func (NotifyAction) ActionType() ActionType { return ActionTypeNotify }

// SummarizeAction generates a summary of the last TimeframeMinutes of
// recorded activity.
type SummarizeAction struct {
	TimeframeMinutes uint          `json:"timeframe_minutes"`
	Focus            SummaryFocus  `json:"focus,omitempty"`
	Output           SummaryOutput `json:"output,omitempty"`
}

func (SummarizeAction) ActionType() ActionType { return ActionTypeSummarize }

// FocusModeAction enables or disables focus mode, optionally for a bounded
// duration with an app allowlist.
type FocusModeAction struct {
	Enabled              bool     `json:"enabled"`
	DurationMinutes      *uint    `json:"duration_minutes,omitempty"`
	AllowedApps          []string `json:"allowed_apps,omitempty"`
	SilenceNotifications *bool    `json:"silence_notifications,omitempty"`
}

func (FocusModeAction) ActionType() ActionType { return ActionTypeFocusMode }

// RunPipeAction starts a sub-pipeline with optional parameters.
type RunPipeAction struct {
	PipeID string          `json:"pipe_id"`
	Params json.RawMessage `json:"params,omitempty"`
}

func (RunPipeAction) ActionType() ActionType { return ActionTypeRunPipe }

// TagAction applies tags to content captured in the last TimeframeMinutes.
type TagAction struct {
	Tags             []string `json:"tags"`
	TimeframeMinutes uint     `json:"timeframe_minutes"`
}

func (TagAction) ActionType() ActionType { return ActionTypeTag }

// WebhookAction calls an outbound HTTP endpoint. The call is bounded by the
// executor's webhook timeout; a timeout or non-2xx status is recorded as a
// failed action result, never a crash.
type WebhookAction struct {
	URL     string            `json:"url"`
	Method  HTTPMethod        `json:"method"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

func (WebhookAction) ActionType() ActionType { return ActionTypeWebhook }

// StartRecordingAction starts capture with optional settings.
type StartRecordingAction struct {
	FocusApp string `json:"focus_app,omitempty"`
	Tag      string `json:"tag,omitempty"`
}

func (StartRecordingAction) ActionType() ActionType { return ActionTypeStartRecording }

// StopRecordingAction stops capture.
type StopRecordingAction struct{}

func (StopRecordingAction) ActionType() ActionType { return ActionTypeStopRecording }

func (a NotifyAction) MarshalJSON() ([]byte, error) {
	type alias NotifyAction
	return json.Marshal(struct {
		Type ActionType `json:"type"`
		alias
	}{ActionTypeNotify, alias(a)})
}

func (a SummarizeAction) MarshalJSON() ([]byte, error) {
	type alias SummarizeAction
	return json.Marshal(struct {
		Type ActionType `json:"type"`
		alias
	}{ActionTypeSummarize, alias(a)})
}

func (a FocusModeAction) MarshalJSON() ([]byte, error) {
	type alias FocusModeAction
	return json.Marshal(struct {
		Type ActionType `json:"type"`
		alias
	}{ActionTypeFocusMode, alias(a)})
}

func (a RunPipeAction) MarshalJSON() ([]byte, error) {
	type alias RunPipeAction
	return json.Marshal(struct {
		Type ActionType `json:"type"`
		alias
	}{ActionTypeRunPipe, alias(a)})
}

func (a TagAction) MarshalJSON() ([]byte, error) {
	type alias TagAction
	return json.Marshal(struct {
		Type ActionType `json:"type"`
		alias
	}{ActionTypeTag, alias(a)})
}

func (a WebhookAction) MarshalJSON() ([]byte, error) {
	type alias WebhookAction
	return json.Marshal(struct {
		Type ActionType `json:"type"`
		alias
	}{ActionTypeWebhook, alias(a)})
}

func (a StartRecordingAction) MarshalJSON() ([]byte, error) {
	type alias StartRecordingAction
	return json.Marshal(struct {
		Type ActionType `json:"type"`
		alias
	}{ActionTypeStartRecording, alias(a)})
}

func (a StopRecordingAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type ActionType `json:"type"`
	}{ActionTypeStopRecording})
}

// UnmarshalAction decodes a single tagged action.
func UnmarshalAction(data []byte) (Action, error) {
	var tag struct {
		Type ActionType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode action tag: %w", err)
	}

	switch tag.Type {
	case ActionTypeNotify:
		var a NotifyAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode notify action: %w", err)
		}
		return a, nil
	case ActionTypeSummarize:
		var a SummarizeAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode summarize action: %w", err)
		}
		return a, nil
	case ActionTypeFocusMode:
		var a FocusModeAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode focus_mode action: %w", err)
		}
		return a, nil
	case ActionTypeRunPipe:
		var a RunPipeAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode run_pipe action: %w", err)
		}
		return a, nil
	case ActionTypeTag:
		var a TagAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode tag action: %w", err)
		}
		return a, nil
	case ActionTypeWebhook:
		var a WebhookAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode webhook action: %w", err)
		}
		return a, nil
	case ActionTypeStartRecording:
		var a StartRecordingAction
		if err := json.Unmarshal(data, &a); err != nil {
			return nil, fmt.Errorf("decode start_recording action: %w", err)
		}
		return a, nil
	case ActionTypeStopRecording:
		return StopRecordingAction{}, nil
	case "":
		return nil, fmt.Errorf("action is missing a type tag")
	default:
		return nil, fmt.Errorf("unknown action type %q", tag.Type)
	}
}

// Actions is an action list with envelope-aware decoding.
type Actions []Action

func (as *Actions) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode action list: %w", err)
	}

	out := make(Actions, 0, len(raw))
	for i, r := range raw {
		a, err := UnmarshalAction(r)
		if err != nil {
			return fmt.Errorf("action[%d]: %w", i, err)
		}
		out = append(out, a)
	}
	*as = out
	return nil
}
