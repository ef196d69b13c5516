package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

// Timestamps are stored as RFC 3339 TEXT in UTC so the column sorts
// chronologically with plain string comparison.
const timeFormat = time.RFC3339Nano

func marshalTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func unmarshalTime(s string) (time.Time, error) {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// marshalTriggers converts a trigger list to its tagged-union JSON TEXT.
// The playbook types own the envelope encoding; the store just persists it.
func marshalTriggers(ts playbook.Triggers) (string, error) {
	data, err := json.Marshal(ts)
	if err != nil {
		return "", fmt.Errorf("marshal triggers: %w", err)
	}
	return string(data), nil
}

func unmarshalTriggers(data string) (playbook.Triggers, error) {
	if data == "" || data == "[]" {
		return playbook.Triggers{}, nil
	}
	var ts playbook.Triggers
	if err := json.Unmarshal([]byte(data), &ts); err != nil {
		return nil, fmt.Errorf("unmarshal triggers: %w", err)
	}
	return ts, nil
}

// marshalActions converts an action list to its tagged-union JSON TEXT.
func marshalActions(as playbook.Actions) (string, error) {
	data, err := json.Marshal(as)
	if err != nil {
		return "", fmt.Errorf("marshal actions: %w", err)
	}
	return string(data), nil
}

func unmarshalActions(data string) (playbook.Actions, error) {
	if data == "" || data == "[]" {
		return playbook.Actions{}, nil
	}
	var as playbook.Actions
	if err := json.Unmarshal([]byte(data), &as); err != nil {
		return nil, fmt.Errorf("unmarshal actions: %w", err)
	}
	return as, nil
}

// marshalTrigger converts the single triggered_by trigger to JSON TEXT.
func marshalTrigger(t playbook.Trigger) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal trigger: %w", err)
	}
	return string(data), nil
}

func unmarshalTrigger(data string) (playbook.Trigger, error) {
	if data == "" || data == "null" {
		return nil, nil
	}
	t, err := playbook.UnmarshalTrigger([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal trigger: %w", err)
	}
	return t, nil
}

// marshalResults converts collected action results to JSON TEXT.
func marshalResults(rs []playbook.ActionResult) (string, error) {
	if rs == nil {
		rs = []playbook.ActionResult{}
	}
	data, err := json.Marshal(rs)
	if err != nil {
		return "", fmt.Errorf("marshal action results: %w", err)
	}
	return string(data), nil
}

func unmarshalResults(data string) ([]playbook.ActionResult, error) {
	if data == "" || data == "[]" {
		return []playbook.ActionResult{}, nil
	}
	var rs []playbook.ActionResult
	if err := json.Unmarshal([]byte(data), &rs); err != nil {
		return nil, fmt.Errorf("unmarshal action results: %w", err)
	}
	return rs, nil
}
