package action

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

// LogNotifier logs notifications instead of delivering them to a desktop.
// Used when the daemon runs without a notification integration; the original
// system falls back to logging the same way.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, title, message string, opts NotifyOptions) (json.RawMessage, error) {
	slog.Info("notification",
		"title", title,
		"message", message,
		"persistent", opts.Persistent,
		"buttons", len(opts.Buttons),
	)
	return json.Marshal(map[string]any{
		"notified": true,
		"title":    title,
		"message":  message,
		"method":   "log",
	})
}

// LogFocusController records focus-mode changes without driving an OS
// integration.
type LogFocusController struct{}

func (LogFocusController) SetFocusMode(_ context.Context, enabled bool, opts FocusOptions) (json.RawMessage, error) {
	slog.Info("focus mode changed",
		"enabled", enabled,
		"duration", opts.Duration,
		"allowed_apps", opts.AllowedApps,
		"silence_notifications", opts.SilenceNotifications,
	)
	return json.Marshal(map[string]any{
		"focus_mode":   enabled,
		"duration_min": int(opts.Duration / time.Minute),
	})
}

// LogRecordingController records start/stop requests without a capture
// pipeline attached.
type LogRecordingController struct{}

func (LogRecordingController) StartRecording(_ context.Context, focusApp, tag string) (json.RawMessage, error) {
	slog.Info("recording start requested", "focus_app", focusApp, "tag", tag)
	return json.Marshal(map[string]any{"recording_started": true})
}

func (LogRecordingController) StopRecording(_ context.Context) (json.RawMessage, error) {
	slog.Info("recording stop requested")
	return json.Marshal(map[string]any{"recording_stopped": true})
}

// LogSummarizer acknowledges summary requests when no summarization service
// is wired. The summary content itself is produced externally.
type LogSummarizer struct{}

func (LogSummarizer) Summarize(_ context.Context, timeframe time.Duration, focus playbook.SummaryFocus, output playbook.SummaryOutput) (json.RawMessage, error) {
	slog.Info("summary requested",
		"timeframe", timeframe,
		"focus", focus,
		"output", output,
	)
	return json.Marshal(map[string]any{
		"summarized":    true,
		"timeframe_min": int(timeframe / time.Minute),
		"focus":         string(focus),
	})
}

// Defaults returns a back-end set suitable for a daemon with no external
// integrations: webhooks work for real, everything else logs. Callers
// replace fields as integrations come online.
func Defaults(webhookTimeout time.Duration) Backends {
	return Backends{
		Notifier:  LogNotifier{},
		Summaries: LogSummarizer{},
		Focus:     LogFocusController{},
		Webhooks:  NewHTTPWebhook(webhookTimeout),
		Recording: LogRecordingController{},
	}
}

// ErrNotConfigured is returned by the executor when an action's back-end is
// nil. Kept here so the message stays consistent across action kinds.
func ErrNotConfigured(kind string) error {
	return fmt.Errorf("no %s backend configured", kind)
}
