package action

import (
	"context"
	"encoding/json"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

// NotifyOptions carries the optional parts of a notification.
type NotifyOptions struct {
	Buttons    []playbook.NotificationButton
	Persistent bool
}

// Notifier delivers a notification to the user.
type Notifier interface {
	Notify(ctx context.Context, title, message string, opts NotifyOptions) (json.RawMessage, error)
}

// Summarizer generates a summary of recent activity.
type Summarizer interface {
	Summarize(ctx context.Context, timeframe time.Duration, focus playbook.SummaryFocus, output playbook.SummaryOutput) (json.RawMessage, error)
}

// FocusOptions carries the optional parts of a focus-mode change.
type FocusOptions struct {
	Duration             time.Duration // zero = no bound
	AllowedApps          []string
	SilenceNotifications bool
}

// FocusController toggles focus mode.
type FocusController interface {
	SetFocusMode(ctx context.Context, enabled bool, opts FocusOptions) (json.RawMessage, error)
}

// PipeRunner starts a sub-pipeline.
type PipeRunner interface {
	RunPipe(ctx context.Context, pipeID string, params json.RawMessage) (json.RawMessage, error)
}

// Tagger applies tags to content captured within the timeframe.
type Tagger interface {
	ApplyTags(ctx context.Context, tags []string, timeframe time.Duration) (json.RawMessage, error)
}

// WebhookCaller performs an outbound HTTP call.
type WebhookCaller interface {
	CallWebhook(ctx context.Context, url string, method playbook.HTTPMethod, headers map[string]string, body json.RawMessage) (json.RawMessage, error)
}

// RecordingController starts and stops capture.
type RecordingController interface {
	StartRecording(ctx context.Context, focusApp, tag string) (json.RawMessage, error)
	StopRecording(ctx context.Context) (json.RawMessage, error)
}

// Backends bundles the back-ends available to the executor. Any field may
// be nil; the corresponding actions then fail with a recorded error.
type Backends struct {
	Notifier  Notifier
	Summaries Summarizer
	Focus     FocusController
	Pipes     PipeRunner
	Tags      Tagger
	Webhooks  WebhookCaller
	Recording RecordingController
}
