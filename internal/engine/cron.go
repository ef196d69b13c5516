package engine

import (
	"time"

	"github.com/robfig/cron/v3"
)

// cronMatchesMinute reports whether the schedule fires at the minute
// containing t. Pure function of (schedule, timestamp): the once-per-minute
// tick is the only driver, there is no recurring-timer state.
//
// Works by asking the schedule for its next firing strictly after one
// second before the minute boundary; a match means that firing IS the
// boundary. Evaluation happens in t's location, so "0 9 * * 1-5" means
// 09:00 local time.
func cronMatchesMinute(sched cron.Schedule, t time.Time) bool {
	minute := t.Truncate(time.Minute)
	return sched.Next(minute.Add(-time.Second)).Equal(minute)
}
