package engine

import (
	"strings"
	"time"
)

// appState is what the engine remembers about one open application.
type appState struct {
	window   string
	lastSeen time.Time
}

// meetingState tracks the currently active meeting, if any.
type meetingState struct {
	sourceID  string
	app       string
	startedAt time.Time
}

// snapshot is the engine's current view of the desktop: open applications
// and their window titles, idle state, and any active meeting. Context
// triggers evaluate against it on every event and every tick.
//
// Owned exclusively by the dispatch goroutine; no locking.
type snapshot struct {
	openApps map[string]appState // keyed by lowercased app name
	isIdle   bool
	idleMins uint
	meeting  *meetingState
}

func newSnapshot() *snapshot {
	return &snapshot{openApps: make(map[string]appState)}
}

// apply folds an event into the snapshot before matching, so the event's
// own effects are visible to the triggers it is matched against (an
// app_opened event must satisfy a context trigger requiring that app).
func (s *snapshot) apply(ev Event) {
	switch ev.Type {
	case EventAppFocused:
		s.openApps[strings.ToLower(ev.App)] = appState{
			window:   ev.Window,
			lastSeen: ev.Time,
		}
	case EventAppClosed:
		delete(s.openApps, strings.ToLower(ev.App))
	case EventIdleChanged:
		s.isIdle = ev.Idle
		s.idleMins = ev.IdleMinutes
	case EventMeetingStarted:
		s.meeting = &meetingState{
			sourceID:  ev.MeetingID,
			app:       ev.App,
			startedAt: ev.Time,
		}
	case EventMeetingEnded:
		s.meeting = nil
	}
}

// appOpen reports whether the named app is in the open set and returns its
// last seen window title. Name comparison is case-insensitive.
func (s *snapshot) appOpen(name string) (window string, ok bool) {
	st, ok := s.openApps[strings.ToLower(name)]
	return st.window, ok
}

// allAppsOpen reports whether every named app is currently open.
func (s *snapshot) allAppsOpen(names []string) bool {
	for _, n := range names {
		if _, ok := s.appOpen(n); !ok {
			return false
		}
	}
	return true
}

// anyWindowContains reports whether any open app's window title contains
// one of the given substrings, case-insensitively.
func (s *snapshot) anyWindowContains(needles []string) bool {
	for _, st := range s.openApps {
		if st.window == "" {
			continue
		}
		title := strings.ToLower(st.window)
		for _, needle := range needles {
			if strings.Contains(title, strings.ToLower(needle)) {
				return true
			}
		}
	}
	return false
}
