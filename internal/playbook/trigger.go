package playbook

import (
	"encoding/json"
	"fmt"
)

// TriggerType is the JSON type tag distinguishing trigger variants.
type TriggerType string

const (
	TriggerTypeAppOpen      TriggerType = "app_open"
	TriggerTypeTime         TriggerType = "time"
	TriggerTypeKeyword      TriggerType = "keyword"
	TriggerTypeContext      TriggerType = "context"
	TriggerTypeMeetingStart TriggerType = "meeting_start"
	TriggerTypeMeetingEnd   TriggerType = "meeting_end"
	TriggerTypeIdleState    TriggerType = "idle_state"
)

// Trigger is a condition that activates a playbook. Exactly one of the
// variant structs below implements it; there are no open-ended triggers.
type Trigger interface {
	TriggerType() TriggerType
}

// KeywordSource selects which event stream a keyword trigger listens to.
type KeywordSource string

const (
	SourceOCR   KeywordSource = "ocr"
	SourceAudio KeywordSource = "audio"
	SourceBoth  KeywordSource = "both"
)

// IdleTriggerState selects which idle transition fires an idle trigger.
type IdleTriggerState string

const (
	IdleBecomesIdle   IdleTriggerState = "becomes_idle"
	IdleBecomesActive IdleTriggerState = "becomes_active"
)

// AppOpenTrigger fires when the named application gains focus. AppName is
// compared case-insensitively; WindowName, if set, is a case-insensitive
// substring match against the window title.
type AppOpenTrigger struct {
	AppName    string `json:"app_name"`
	WindowName string `json:"window_name,omitempty"`
}

func (AppOpenTrigger) TriggerType() TriggerType { return TriggerTypeAppOpen }

// TimeTrigger fires when the wall clock reaches a minute matching the
// 5-field cron expression (minute hour day-of-month month day-of-week).
// Driven only by the engine's per-minute tick; sub-minute precision is
// neither guaranteed nor required.
type TimeTrigger struct {
	Cron        string `json:"cron"`
	Description string `json:"description,omitempty"`
}

func (TimeTrigger) TriggerType() TriggerType { return TriggerTypeTime }

// KeywordTrigger fires when Pattern (a regular expression, searched, not
// full-matched) matches text from the selected source with detection
// confidence >= Threshold. A nil Threshold means any match passes.
type KeywordTrigger struct {
	Pattern   string        `json:"pattern"`
	Source    KeywordSource `json:"source"`
	Threshold *float64      `json:"threshold,omitempty"`
}

func (KeywordTrigger) TriggerType() TriggerType { return TriggerTypeKeyword }

// ContextTrigger fires when every present sub-condition holds at once:
// all listed apps open, at least one listed window title visible, current
// local time inside TimeRange ("HH:MM-HH:MM", half-open), and current
// weekday in DaysOfWeek (0=Sunday). Absent fields impose no constraint.
type ContextTrigger struct {
	Apps       []string `json:"apps,omitempty"`
	Windows    []string `json:"windows,omitempty"`
	TimeRange  string   `json:"time_range,omitempty"`
	DaysOfWeek []int    `json:"days_of_week,omitempty"`
}

func (ContextTrigger) TriggerType() TriggerType { return TriggerTypeContext }

// MeetingStartTrigger fires on a meeting-started event, optionally filtered
// by the app hosting the meeting.
type MeetingStartTrigger struct {
	AppName  string   `json:"app_name,omitempty"`
	Keywords []string `json:"keywords,omitempty"`
}

func (MeetingStartTrigger) TriggerType() TriggerType { return TriggerTypeMeetingStart }

// MeetingEndTrigger fires on a meeting-ended event, optionally requiring a
// minimum meeting duration.
type MeetingEndTrigger struct {
	AppName            string `json:"app_name,omitempty"`
	MinDurationMinutes *uint  `json:"min_duration_minutes,omitempty"`
}

func (MeetingEndTrigger) TriggerType() TriggerType { return TriggerTypeMeetingEnd }

// IdleStateTrigger fires when the user crosses the idle threshold in the
// configured direction.
type IdleStateTrigger struct {
	IdleMinutes uint             `json:"idle_minutes"`
	State       IdleTriggerState `json:"state"`
}

func (IdleStateTrigger) TriggerType() TriggerType { return TriggerTypeIdleState }

// Envelope marshalling. Each variant emits its type tag first, then its own
// fields, matching the wire shape persisted in triggers_json.

func (t AppOpenTrigger) MarshalJSON() ([]byte, error) {
	type alias AppOpenTrigger
	return json.Marshal(struct {
		Type TriggerType `json:"type"`
		alias
	}{TriggerTypeAppOpen, alias(t)})
}

func (t TimeTrigger) MarshalJSON() ([]byte, error) {
	type alias TimeTrigger
	return json.Marshal(struct {
		Type TriggerType `json:"type"`
		alias
	}{TriggerTypeTime, alias(t)})
}

func (t KeywordTrigger) MarshalJSON() ([]byte, error) {
	type alias KeywordTrigger
	return json.Marshal(struct {
		Type TriggerType `json:"type"`
		alias
	}{TriggerTypeKeyword, alias(t)})
}

func (t ContextTrigger) MarshalJSON() ([]byte, error) {
	type alias ContextTrigger
	return json.Marshal(struct {
		Type TriggerType `json:"type"`
		alias
	}{TriggerTypeContext, alias(t)})
}

func (t MeetingStartTrigger) MarshalJSON() ([]byte, error) {
	type alias MeetingStartTrigger
	return json.Marshal(struct {
		Type TriggerType `json:"type"`
		alias
	}{TriggerTypeMeetingStart, alias(t)})
}

func (t MeetingEndTrigger) MarshalJSON() ([]byte, error) {
	type alias MeetingEndTrigger
	return json.Marshal(struct {
		Type TriggerType `json:"type"`
		alias
	}{TriggerTypeMeetingEnd, alias(t)})
}

func (t IdleStateTrigger) MarshalJSON() ([]byte, error) {
	type alias IdleStateTrigger
	return json.Marshal(struct {
		Type TriggerType `json:"type"`
		alias
	}{TriggerTypeIdleState, alias(t)})
}

// UnmarshalTrigger decodes a single tagged trigger.
func UnmarshalTrigger(data []byte) (Trigger, error) {
	var tag struct {
		Type TriggerType `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("decode trigger tag: %w", err)
	}

	switch tag.Type {
	case TriggerTypeAppOpen:
		var t AppOpenTrigger
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode app_open trigger: %w", err)
		}
		return t, nil
	case TriggerTypeTime:
		var t TimeTrigger
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode time trigger: %w", err)
		}
		return t, nil
	case TriggerTypeKeyword:
		var t KeywordTrigger
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode keyword trigger: %w", err)
		}
		return t, nil
	case TriggerTypeContext:
		var t ContextTrigger
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode context trigger: %w", err)
		}
		return t, nil
	case TriggerTypeMeetingStart:
		var t MeetingStartTrigger
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode meeting_start trigger: %w", err)
		}
		return t, nil
	case TriggerTypeMeetingEnd:
		var t MeetingEndTrigger
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode meeting_end trigger: %w", err)
		}
		return t, nil
	case TriggerTypeIdleState:
		var t IdleStateTrigger
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("decode idle_state trigger: %w", err)
		}
		return t, nil
	case "":
		return nil, fmt.Errorf("trigger is missing a type tag")
	default:
		return nil, fmt.Errorf("unknown trigger type %q", tag.Type)
	}
}

// Triggers is a trigger list with envelope-aware decoding.
type Triggers []Trigger

func (ts *Triggers) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode trigger list: %w", err)
	}

	out := make(Triggers, 0, len(raw))
	for i, r := range raw {
		t, err := UnmarshalTrigger(r)
		if err != nil {
			return fmt.Errorf("trigger[%d]: %w", i, err)
		}
		out = append(out, t)
	}
	*ts = out
	return nil
}
