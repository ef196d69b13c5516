package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reflexhq/reflex/internal/action"
	"github.com/reflexhq/reflex/internal/playbook"
)

// fakeNotifier records calls and fails or panics on demand.
type fakeNotifier struct {
	calls  int
	fail   bool
	panics bool
	block  time.Duration
}

func (n *fakeNotifier) Notify(_ context.Context, title, message string, _ action.NotifyOptions) (json.RawMessage, error) {
	n.calls++
	if n.panics {
		panic("notifier exploded")
	}
	if n.block > 0 {
		time.Sleep(n.block)
	}
	if n.fail {
		return nil, errors.New("notification service unavailable")
	}
	return json.RawMessage(`{"notified":true}`), nil
}

type fakeTagger struct {
	calls int
	tags  []string
}

func (tg *fakeTagger) ApplyTags(_ context.Context, tags []string, _ time.Duration) (json.RawMessage, error) {
	tg.calls++
	tg.tags = tags
	return json.RawMessage(`{"tagged":true}`), nil
}

func TestExecutor_RunsActionsInOrder(t *testing.T) {
	notifier := &fakeNotifier{}
	tagger := &fakeTagger{}
	x := NewExecutor(action.Backends{Notifier: notifier, Tags: tagger})

	actions := playbook.Actions{
		playbook.NotifyAction{Title: "hi", Message: "there"},
		playbook.TagAction{Tags: []string{"meeting"}, TimeframeMinutes: 30},
	}

	results, cancelled := x.Execute(context.Background(), actions)
	require.False(t, cancelled)
	require.Len(t, results, 2)

	assert.True(t, results[0].Success)
	assert.Equal(t, playbook.ActionTypeNotify, results[0].Action.ActionType())
	assert.True(t, results[1].Success)
	assert.Equal(t, []string{"meeting"}, tagger.tags)
}

func TestExecutor_PartialFailureDoesNotShortCircuit(t *testing.T) {
	notifier := &fakeNotifier{fail: true}
	tagger := &fakeTagger{}
	x := NewExecutor(action.Backends{Notifier: notifier, Tags: tagger})

	actions := playbook.Actions{
		playbook.NotifyAction{Title: "hi", Message: "there"},
		playbook.TagAction{Tags: []string{"after-failure"}},
	}

	results, cancelled := x.Execute(context.Background(), actions)
	require.False(t, cancelled)
	require.Len(t, results, 2)

	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "notification service unavailable")

	// The failure above must not prevent the tag action.
	assert.True(t, results[1].Success)
	assert.Equal(t, 1, tagger.calls)
}

func TestExecutor_DurationRecordedOnFailure(t *testing.T) {
	notifier := &fakeNotifier{fail: true, block: 20 * time.Millisecond}
	x := NewExecutor(action.Backends{Notifier: notifier})

	results, _ := x.Execute(context.Background(), playbook.Actions{
		playbook.NotifyAction{Title: "t", Message: "m"},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.GreaterOrEqual(t, results[0].DurationMS, int64(15))
}

func TestExecutor_PanicBecomesFailedResult(t *testing.T) {
	notifier := &fakeNotifier{panics: true}
	tagger := &fakeTagger{}
	x := NewExecutor(action.Backends{Notifier: notifier, Tags: tagger})

	actions := playbook.Actions{
		playbook.NotifyAction{Title: "t", Message: "m"},
		playbook.TagAction{Tags: []string{"still-runs"}},
	}

	results, cancelled := x.Execute(context.Background(), actions)
	require.False(t, cancelled)
	require.Len(t, results, 2)

	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "panicked")
	assert.True(t, results[1].Success)
}

func TestExecutor_MissingBackendFailsAction(t *testing.T) {
	x := NewExecutor(action.Backends{}) // nothing configured

	results, _ := x.Execute(context.Background(), playbook.Actions{
		playbook.RunPipeAction{PipeID: "pipe-1"},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "no pipe runner backend configured")
}

func TestExecutor_CancellationStopsBetweenActions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	notifier := &fakeNotifier{}
	tagger := &fakeTagger{}
	x := NewExecutor(action.Backends{Notifier: notifier, Tags: tagger})

	// Cancel after the first action completes.
	firstDone := false
	notifierWrapped := notifyFunc(func(c context.Context, title, message string, opts action.NotifyOptions) (json.RawMessage, error) {
		res, err := notifier.Notify(c, title, message, opts)
		if !firstDone {
			firstDone = true
			cancel()
		}
		return res, err
	})
	x = NewExecutor(action.Backends{Notifier: notifierWrapped, Tags: tagger})

	actions := playbook.Actions{
		playbook.NotifyAction{Title: "first", Message: "runs"},
		playbook.TagAction{Tags: []string{"never"}},
	}

	results, cancelled := x.Execute(ctx, actions)
	assert.True(t, cancelled)
	require.Len(t, results, 1, "only the action already dispatched has a result")
	assert.True(t, results[0].Success, "in-flight action runs to completion")
	assert.Equal(t, 0, tagger.calls)
}

func TestExecutor_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	x := NewExecutor(action.Backends{Notifier: &fakeNotifier{}})
	results, cancelled := x.Execute(ctx, playbook.Actions{
		playbook.NotifyAction{Title: "t", Message: "m"},
	})

	assert.True(t, cancelled)
	assert.Empty(t, results)
}

// notifyFunc adapts a function to the Notifier interface for tests.
type notifyFunc func(ctx context.Context, title, message string, opts action.NotifyOptions) (json.RawMessage, error)

func (f notifyFunc) Notify(ctx context.Context, title, message string, opts action.NotifyOptions) (json.RawMessage, error) {
	return f(ctx, title, message, opts)
}
