package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reflexhq/reflex/internal/action"
	"github.com/reflexhq/reflex/internal/playbook"
)

// Executor runs a playbook's action list against the configured back-ends.
//
// The run is a fold over the actions producing a result list, never
// short-circuiting: one action's failure does not prevent subsequent
// actions from running. This is a deliberate design choice, not a
// happenstance of error handling; actions like notify and tag are
// independent side effects with no data dependency.
type Executor struct {
	backends action.Backends
}

func NewExecutor(backends action.Backends) *Executor {
	return &Executor{backends: backends}
}

// Execute runs the actions in declared order. Every action gets a result
// with its wall-clock duration regardless of success. A cancelled context
// stops dispatch between actions (cooperative, never mid-action) and
// returns the results collected so far with cancelled=true.
func (x *Executor) Execute(ctx context.Context, actions playbook.Actions) (results []playbook.ActionResult, cancelled bool) {
	results = make([]playbook.ActionResult, 0, len(actions))

	for _, a := range actions {
		if ctx.Err() != nil {
			return results, true
		}

		start := time.Now()
		res, err := x.dispatch(ctx, a)
		elapsed := time.Since(start).Milliseconds()

		result := playbook.ActionResult{
			Action:     a,
			Success:    err == nil,
			Result:     res,
			DurationMS: elapsed,
		}
		if err != nil {
			result.Error = err.Error()
			slog.Warn("action failed",
				"action_type", a.ActionType(),
				"error", err,
				"duration_ms", elapsed,
			)
		}
		results = append(results, result)
	}

	return results, false
}

// dispatch routes one action to its back-end. Panics from a back-end are
// recovered here and converted into an error, so a misbehaving integration
// can never take down the engine.
func (x *Executor) dispatch(ctx context.Context, a playbook.Action) (res []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("action backend panicked: %v", r)
		}
	}()

	switch act := a.(type) {
	case playbook.NotifyAction:
		if x.backends.Notifier == nil {
			return nil, action.ErrNotConfigured("notifier")
		}
		opts := action.NotifyOptions{Buttons: act.Actions}
		if act.Persistent != nil {
			opts.Persistent = *act.Persistent
		}
		return x.backends.Notifier.Notify(ctx, act.Title, act.Message, opts)

	case playbook.SummarizeAction:
		if x.backends.Summaries == nil {
			return nil, action.ErrNotConfigured("summarizer")
		}
		timeframe := time.Duration(act.TimeframeMinutes) * time.Minute
		return x.backends.Summaries.Summarize(ctx, timeframe, act.Focus, act.Output)

	case playbook.FocusModeAction:
		if x.backends.Focus == nil {
			return nil, action.ErrNotConfigured("focus mode")
		}
		opts := action.FocusOptions{AllowedApps: act.AllowedApps}
		if act.DurationMinutes != nil {
			opts.Duration = time.Duration(*act.DurationMinutes) * time.Minute
		}
		if act.SilenceNotifications != nil {
			opts.SilenceNotifications = *act.SilenceNotifications
		}
		return x.backends.Focus.SetFocusMode(ctx, act.Enabled, opts)

	case playbook.RunPipeAction:
		if x.backends.Pipes == nil {
			return nil, action.ErrNotConfigured("pipe runner")
		}
		return x.backends.Pipes.RunPipe(ctx, act.PipeID, act.Params)

	case playbook.TagAction:
		if x.backends.Tags == nil {
			return nil, action.ErrNotConfigured("tagger")
		}
		timeframe := time.Duration(act.TimeframeMinutes) * time.Minute
		return x.backends.Tags.ApplyTags(ctx, act.Tags, timeframe)

	case playbook.WebhookAction:
		if x.backends.Webhooks == nil {
			return nil, action.ErrNotConfigured("webhook caller")
		}
		return x.backends.Webhooks.CallWebhook(ctx, act.URL, act.Method, act.Headers, act.Body)

	case playbook.StartRecordingAction:
		if x.backends.Recording == nil {
			return nil, action.ErrNotConfigured("recording controller")
		}
		return x.backends.Recording.StartRecording(ctx, act.FocusApp, act.Tag)

	case playbook.StopRecordingAction:
		if x.backends.Recording == nil {
			return nil, action.ErrNotConfigured("recording controller")
		}
		return x.backends.Recording.StopRecording(ctx)

	default:
		return nil, fmt.Errorf("unknown action variant %T", a)
	}
}
