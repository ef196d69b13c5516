package engine

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/reflexhq/reflex/internal/playbook"
)

// Match pairs a playbook with the specific trigger that satisfied it.
type Match struct {
	Playbook *CompiledPlaybook
	Trigger  playbook.Trigger
}

// matchPlaybooks evaluates one event (or tick) against all playbooks.
//
// Determinism: playbooks are evaluated in insertion order; within a
// playbook the first satisfying trigger in declared order wins and becomes
// the execution's triggered_by. At most one match per playbook per
// dispatched item, so two triggers both satisfied by the same event still
// produce a single activation.
func matchPlaybooks(ev Event, snap *snapshot, pbs []*CompiledPlaybook, now time.Time) []Match {
	var matches []Match

	for _, cp := range pbs {
		if !cp.Def.Enabled {
			continue
		}
		// Non-activatable by invariant; Validate rejects these, but stored
		// definitions predating validation must not panic the loop.
		if len(cp.triggers) == 0 || len(cp.Def.Actions) == 0 {
			continue
		}

		for i := range cp.triggers {
			if matchTrigger(&cp.triggers[i], ev, snap, now) {
				matches = append(matches, Match{Playbook: cp, Trigger: cp.triggers[i].src})
				break
			}
		}
	}

	return matches
}

// matchTrigger evaluates one compiled trigger against one event.
func matchTrigger(ct *compiledTrigger, ev Event, snap *snapshot, now time.Time) bool {
	if ct.dormant {
		return false
	}

	switch trig := ct.src.(type) {
	case playbook.AppOpenTrigger:
		if ev.Type != EventAppFocused {
			return false
		}
		if !strings.EqualFold(ev.App, trig.AppName) {
			return false
		}
		if trig.WindowName != "" {
			return containsFold(ev.Window, trig.WindowName)
		}
		return true

	case playbook.TimeTrigger:
		// The per-minute tick is the sole driver for time triggers; a cron
		// expression never matches an activity event.
		if ev.Type != EventTick {
			return false
		}
		return cronMatchesMinute(ct.sched, tickTime(ev, now))

	case playbook.KeywordTrigger:
		if !keywordSourceMatches(trig.Source, ev.Type) {
			return false
		}
		threshold := 0.0
		if trig.Threshold != nil {
			threshold = *trig.Threshold
		}
		if ev.Confidence < threshold {
			return false
		}
		// Regex search, not full match. OCR output arrives in whatever
		// normalization form the recognizer produced; NFC-normalize before
		// searching so composed and decomposed text match the same way.
		return ct.re.MatchString(norm.NFC.String(ev.Text))

	case playbook.ContextTrigger:
		// Re-evaluated on every event and every tick, since time-range and
		// weekday conditions change with no event attached. AND semantics:
		// every present field must hold.
		t := tickTime(ev, now)
		if len(trig.DaysOfWeek) > 0 && !containsInt(trig.DaysOfWeek, int(t.Weekday())) {
			return false
		}
		if ct.hasTimeRange && !inTimeRange(ct.startMin, ct.endMin, t) {
			return false
		}
		if len(trig.Apps) > 0 && !snap.allAppsOpen(trig.Apps) {
			return false
		}
		if len(trig.Windows) > 0 && !snap.anyWindowContains(trig.Windows) {
			return false
		}
		return true

	case playbook.MeetingStartTrigger:
		if ev.Type != EventMeetingStarted {
			return false
		}
		if trig.AppName != "" && !strings.EqualFold(ev.App, trig.AppName) {
			return false
		}
		return true

	case playbook.MeetingEndTrigger:
		if ev.Type != EventMeetingEnded {
			return false
		}
		if trig.AppName != "" && !strings.EqualFold(ev.App, trig.AppName) {
			return false
		}
		if trig.MinDurationMinutes != nil && ev.DurationMinutes < *trig.MinDurationMinutes {
			return false
		}
		return true

	case playbook.IdleStateTrigger:
		if ev.Type != EventIdleChanged {
			return false
		}
		switch trig.State {
		case playbook.IdleBecomesIdle:
			return ev.Idle && ev.IdleMinutes >= trig.IdleMinutes
		case playbook.IdleBecomesActive:
			return !ev.Idle
		}
		return false

	default:
		return false
	}
}

// keywordSourceMatches maps a keyword trigger's source filter onto event kinds.
func keywordSourceMatches(source playbook.KeywordSource, kind EventType) bool {
	switch source {
	case playbook.SourceOCR:
		return kind == EventOCRText
	case playbook.SourceAudio:
		return kind == EventAudioTranscript
	case playbook.SourceBoth:
		return kind == EventOCRText || kind == EventAudioTranscript
	}
	return false
}

// inTimeRange checks local time of day against a half-open [start, end)
// minute range. Ranges with start > end wrap past midnight.
func inTimeRange(startMin, endMin int, t time.Time) bool {
	cur := t.Hour()*60 + t.Minute()
	if startMin <= endMin {
		return cur >= startMin && cur < endMin
	}
	return cur >= startMin || cur < endMin
}

// tickTime picks the timestamp triggers evaluate against: the event's own
// time when it has one, the clock otherwise.
func tickTime(ev Event, now time.Time) time.Time {
	if !ev.Time.IsZero() {
		return ev.Time
	}
	return now
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
