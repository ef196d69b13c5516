package engine

import (
	"log/slog"
	"regexp"

	"github.com/robfig/cron/v3"

	"github.com/reflexhq/reflex/internal/playbook"
)

// compiledTrigger pairs a trigger definition with its parsed machinery:
// a cron schedule for time triggers, a compiled regexp for keyword
// triggers, parsed minute bounds for context time ranges.
//
// A trigger whose expression fails to parse is marked dormant: it never
// satisfies, the playbook stays loaded, and the problem is logged once at
// compile time instead of crashing the dispatch loop per event.
type compiledTrigger struct {
	src playbook.Trigger

	sched cron.Schedule  // time triggers
	re    *regexp.Regexp // keyword triggers

	// context trigger time range, half-open [startMin, endMin) minutes of day
	hasTimeRange     bool
	startMin, endMin int

	dormant bool
	reason  string
}

// CompiledPlaybook is a playbook definition with all trigger expressions
// parsed up front. Matching never parses anything.
type CompiledPlaybook struct {
	Def      playbook.Playbook
	triggers []compiledTrigger
}

// CompilePlaybook parses every trigger of a definition. It never fails:
// malformed triggers come back dormant with a reason.
func CompilePlaybook(def playbook.Playbook) *CompiledPlaybook {
	cp := &CompiledPlaybook{
		Def:      def,
		triggers: make([]compiledTrigger, 0, len(def.Triggers)),
	}

	for _, t := range def.Triggers {
		ct := compiledTrigger{src: t}

		switch trig := t.(type) {
		case playbook.TimeTrigger:
			sched, err := playbook.CronParser.Parse(trig.Cron)
			if err != nil {
				ct.dormant = true
				ct.reason = "invalid cron expression: " + err.Error()
			} else {
				ct.sched = sched
			}
		case playbook.KeywordTrigger:
			re, err := regexp.Compile(trig.Pattern)
			if err != nil {
				ct.dormant = true
				ct.reason = "invalid pattern: " + err.Error()
			} else {
				ct.re = re
			}
		case playbook.ContextTrigger:
			if trig.TimeRange != "" {
				start, end, err := playbook.ParseTimeRange(trig.TimeRange)
				if err != nil {
					ct.dormant = true
					ct.reason = "invalid time_range: " + err.Error()
				} else {
					ct.hasTimeRange = true
					ct.startMin = start
					ct.endMin = end
				}
			}
		}

		if ct.dormant {
			slog.Warn("trigger is dormant",
				"playbook_id", def.ID,
				"playbook", def.Name,
				"trigger_type", t.TriggerType(),
				"reason", ct.reason,
			)
		}

		cp.triggers = append(cp.triggers, ct)
	}

	return cp
}

// compilePlaybooks compiles definitions preserving their order. Matching
// iterates this slice, so insertion order is evaluation order.
func compilePlaybooks(defs []playbook.Playbook) []*CompiledPlaybook {
	out := make([]*CompiledPlaybook, 0, len(defs))
	for _, def := range defs {
		out = append(out, CompilePlaybook(def))
	}
	return out
}
