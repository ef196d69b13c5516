package engine

import (
	"sync"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

// limiterEntry is the per-playbook admission state.
type limiterEntry struct {
	lastFired time.Time
	day       string // local calendar day of the counter, "2006-01-02"
	count     uint
}

// RateLimiter enforces per-playbook cooldowns and daily execution caps.
//
// State is an explicit map keyed by playbook id, owned by the engine and
// passed into the admission check; there is no process-wide singleton.
// It is in-memory only: a restart resets cooldowns and daily counters.
// That is documented behavior, not a defect; the conservative direction
// (allowing an extra execution after restart) is acceptable because
// executions are idempotent at-least-once from the consumer's view.
//
// Admission check and state update happen under one lock, so two
// near-simultaneous admissions for the same playbook cannot both pass a
// cooldown check before either records its firing.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{entries: make(map[string]*limiterEntry)}
}

// Admit decides whether a matched playbook may execute at now, and if so
// records the firing. Denial is a normal outcome, not an error, and leaves
// no trace in the execution history.
//
// The daily counter resets lazily: the first check on a new local calendar
// day (in now's location) zeroes it.
func (rl *RateLimiter) Admit(def *playbook.Playbook, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ent := rl.entries[def.ID]
	if ent == nil {
		ent = &limiterEntry{}
		rl.entries[def.ID] = ent
	}

	today := now.Format("2006-01-02")
	if ent.day != today {
		ent.day = today
		ent.count = 0
	}

	if def.CooldownMinutes != nil && !ent.lastFired.IsZero() {
		cooldown := time.Duration(*def.CooldownMinutes) * time.Minute
		if now.Sub(ent.lastFired) < cooldown {
			return false
		}
	}

	if def.MaxExecutionsPerDay != nil && ent.count >= *def.MaxExecutionsPerDay {
		return false
	}

	ent.lastFired = now
	ent.count++
	return true
}

// Forget drops state for a playbook, typically after it is deleted.
func (rl *RateLimiter) Forget(playbookID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.entries, playbookID)
}

// FiredToday returns the admission count for the playbook on now's local
// day. Used for diagnostics and tests.
func (rl *RateLimiter) FiredToday(playbookID string, now time.Time) uint {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ent := rl.entries[playbookID]
	if ent == nil || ent.day != now.Format("2006-01-02") {
		return 0
	}
	return ent.count
}
