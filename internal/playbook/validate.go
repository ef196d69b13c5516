package playbook

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// CronParser is the shared 5-field cron parser (minute hour day-of-month
// month day-of-week). Descriptors like @daily are accepted as well.
var CronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidationError describes a structural problem with a playbook definition.
type ValidationError struct {
	PlaybookID string
	Field      string
	Message    string
}

func (e *ValidationError) Error() string {
	if e.PlaybookID != "" {
		return fmt.Sprintf("playbook %s: %s: %s", e.PlaybookID, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the structural invariants of a playbook definition.
//
// An enabled playbook must have at least one trigger and one action;
// a playbook with zero triggers or actions is never activatable. Malformed
// cron expressions and regex patterns are NOT structural errors: the engine
// treats such triggers as never-satisfied (dormant) rather than rejecting
// the playbook. Use Lint to surface them.
func (p *Playbook) Validate() error {
	fail := func(field, msg string) error {
		return &ValidationError{PlaybookID: p.ID, Field: field, Message: msg}
	}

	if strings.TrimSpace(p.Name) == "" {
		return fail("name", "name is required")
	}
	if len(p.Triggers) == 0 {
		return fail("triggers", "at least one trigger is required")
	}
	if len(p.Actions) == 0 {
		return fail("actions", "at least one action is required")
	}

	for i, t := range p.Triggers {
		field := fmt.Sprintf("triggers[%d]", i)
		switch trig := t.(type) {
		case AppOpenTrigger:
			if strings.TrimSpace(trig.AppName) == "" {
				return fail(field, "app_name is required")
			}
		case TimeTrigger:
			if strings.TrimSpace(trig.Cron) == "" {
				return fail(field, "cron expression is required")
			}
		case KeywordTrigger:
			if trig.Pattern == "" {
				return fail(field, "pattern is required")
			}
			switch trig.Source {
			case SourceOCR, SourceAudio, SourceBoth:
			default:
				return fail(field, fmt.Sprintf("invalid keyword source %q", trig.Source))
			}
			if trig.Threshold != nil && (*trig.Threshold < 0 || *trig.Threshold > 1) {
				return fail(field, "threshold must be in [0, 1]")
			}
		case ContextTrigger:
			if len(trig.Apps) == 0 && len(trig.Windows) == 0 &&
				trig.TimeRange == "" && len(trig.DaysOfWeek) == 0 {
				return fail(field, "context trigger needs at least one condition")
			}
			for _, d := range trig.DaysOfWeek {
				if d < 0 || d > 6 {
					return fail(field, fmt.Sprintf("day_of_week %d out of range [0,6]", d))
				}
			}
			if trig.TimeRange != "" {
				if _, _, err := ParseTimeRange(trig.TimeRange); err != nil {
					return fail(field, err.Error())
				}
			}
		case IdleStateTrigger:
			switch trig.State {
			case IdleBecomesIdle, IdleBecomesActive:
			default:
				return fail(field, fmt.Sprintf("invalid idle state %q", trig.State))
			}
		case MeetingStartTrigger, MeetingEndTrigger:
			// No required fields.
		default:
			return fail(field, fmt.Sprintf("unknown trigger variant %T", t))
		}
	}

	for i, a := range p.Actions {
		field := fmt.Sprintf("actions[%d]", i)
		switch act := a.(type) {
		case NotifyAction:
			if strings.TrimSpace(act.Title) == "" {
				return fail(field, "title is required")
			}
		case SummarizeAction:
			if act.TimeframeMinutes == 0 {
				return fail(field, "timeframe_minutes must be positive")
			}
		case RunPipeAction:
			if strings.TrimSpace(act.PipeID) == "" {
				return fail(field, "pipe_id is required")
			}
		case TagAction:
			if len(act.Tags) == 0 {
				return fail(field, "at least one tag is required")
			}
			if act.TimeframeMinutes == 0 {
				return fail(field, "timeframe_minutes must be positive")
			}
		case WebhookAction:
			if strings.TrimSpace(act.URL) == "" {
				return fail(field, "url is required")
			}
			switch act.Method {
			case MethodGet, MethodPost, MethodPut, MethodDelete:
			default:
				return fail(field, fmt.Sprintf("invalid HTTP method %q", act.Method))
			}
		case FocusModeAction, StartRecordingAction, StopRecordingAction:
			// No required fields.
		default:
			return fail(field, fmt.Sprintf("unknown action variant %T", a))
		}
	}

	return nil
}

// Lint returns non-fatal problems: triggers that parse badly and will be
// dormant at runtime. The playbook stays loadable either way.
func (p *Playbook) Lint() []string {
	var warnings []string

	for i, t := range p.Triggers {
		switch trig := t.(type) {
		case TimeTrigger:
			if _, err := CronParser.Parse(trig.Cron); err != nil {
				warnings = append(warnings, fmt.Sprintf(
					"triggers[%d]: cron %q will never fire: %v", i, trig.Cron, err))
			}
		case KeywordTrigger:
			if _, err := regexp.Compile(trig.Pattern); err != nil {
				warnings = append(warnings, fmt.Sprintf(
					"triggers[%d]: pattern %q will never match: %v", i, trig.Pattern, err))
			}
		}
	}

	return warnings
}

// ParseTimeRange parses "HH:MM-HH:MM" into start and end minutes of day.
// The range is half-open: [start, end). Ranges where start > end wrap past
// midnight (e.g. "22:00-06:00").
func ParseTimeRange(s string) (startMin, endMin int, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time_range %q must be HH:MM-HH:MM", s)
	}

	parse := func(part string) (int, error) {
		var h, m int
		if _, err := fmt.Sscanf(strings.TrimSpace(part), "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("time %q must be HH:MM", part)
		}
		if h < 0 || h > 23 || m < 0 || m > 59 {
			return 0, fmt.Errorf("time %q out of range", part)
		}
		return h*60 + m, nil
	}

	if startMin, err = parse(parts[0]); err != nil {
		return 0, 0, err
	}
	if endMin, err = parse(parts[1]); err != nil {
		return 0, 0, err
	}
	return startMin, endMin, nil
}
