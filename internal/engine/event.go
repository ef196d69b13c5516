package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

// EventType distinguishes inbound event kinds.
type EventType int

const (
	// EventAppFocused reports the foreground application changing.
	EventAppFocused EventType = iota + 1
	// EventAppClosed reports an application leaving the open set.
	EventAppClosed
	// EventOCRText carries recognized screen text with a confidence score.
	EventOCRText
	// EventAudioTranscript carries transcribed audio with a confidence score.
	EventAudioTranscript
	// EventMeetingStarted and EventMeetingEnded bracket a detected meeting.
	EventMeetingStarted
	EventMeetingEnded
	// EventIdleChanged reports the user crossing the idle threshold.
	EventIdleChanged
	// EventTick is the once-per-minute clock tick driving time triggers.
	EventTick
	// EventReload swaps the engine's playbook set. Routed through the queue
	// so the swap happens in the dispatch goroutine like everything else.
	EventReload
)

// Event is one inbound item for the dispatch loop. Fields beyond Type and
// Time are populated per kind; unused fields stay zero.
type Event struct {
	Type EventType
	Time time.Time

	// App focus / close.
	App    string
	Window string

	// OCR and audio. Confidence is the detector's score in [0, 1].
	Text       string
	Confidence float64

	// Meetings.
	MeetingID       string
	DurationMinutes uint

	// Idle transitions.
	Idle        bool
	IdleMinutes uint

	// Reload payload.
	Playbooks []playbook.Playbook
}

// Wire names follow the original event stream encoding.
var eventTypeNames = map[string]EventType{
	"app_opened":          EventAppFocused,
	"app_closed":          EventAppClosed,
	"ocr_text":            EventOCRText,
	"audio_transcription": EventAudioTranscript,
	"meeting_started":     EventMeetingStarted,
	"meeting_ended":       EventMeetingEnded,
	"idle_state_changed":  EventIdleChanged,
	"time_tick":           EventTick,
}

// ParseEvent decodes one JSON event from the inbound feed. Reload events
// are engine-internal and not accepted from the wire.
func ParseEvent(data []byte, now time.Time) (Event, error) {
	var raw struct {
		Type            string    `json:"type"`
		Timestamp       time.Time `json:"timestamp"`
		App             string    `json:"app_name"`
		Window          string    `json:"window_name"`
		Text            string    `json:"text"`
		Confidence      *float64  `json:"confidence"`
		MeetingID       string    `json:"source_id"`
		DurationMinutes uint      `json:"duration_minutes"`
		Idle            bool      `json:"is_idle"`
		IdleMinutes     uint      `json:"idle_minutes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	kind, ok := eventTypeNames[raw.Type]
	if !ok {
		return Event{}, fmt.Errorf("unknown event type %q", raw.Type)
	}

	ev := Event{
		Type:            kind,
		Time:            raw.Timestamp,
		App:             raw.App,
		Window:          raw.Window,
		Text:            raw.Text,
		MeetingID:       raw.MeetingID,
		DurationMinutes: raw.DurationMinutes,
		Idle:            raw.Idle,
		IdleMinutes:     raw.IdleMinutes,
	}
	if ev.Time.IsZero() {
		ev.Time = now
	}
	// Events without an attached score count as fully confident, so keyword
	// triggers with no threshold still fire on them.
	if raw.Confidence != nil {
		ev.Confidence = *raw.Confidence
	} else {
		ev.Confidence = 1.0
	}
	return ev, nil
}
