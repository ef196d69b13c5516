package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reflexhq/reflex/internal/playbook"
)

func writeCUE(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func findPlaybook(t *testing.T, pbs []playbook.Playbook, id string) playbook.Playbook {
	t.Helper()
	for _, pb := range pbs {
		if pb.ID == id {
			return pb
		}
	}
	t.Fatalf("playbook %s not loaded", id)
	return playbook.Playbook{}
}

func TestLoadPlaybooks_DecodesUnions(t *testing.T) {
	tmpDir := t.TempDir()

	writeCUE(t, tmpDir, "playbooks.cue", `
package playbooks

playbook: "deploy-watch": {
	name:    "Deploy Watch"
	enabled: true
	triggers: [{
		type:      "keyword"
		pattern:   "(?i)deploy"
		source:    "ocr"
		threshold: 0.8
	}]
	actions: [{
		type:    "webhook"
		url:     "https://hooks.example.com/deploys"
		method:  "POST"
		headers: {"X-Token": "abc"}
	}]
	cooldown_minutes: 30
}

playbook: "standup": {
	name: "Standup"
	triggers: [{type: "time", cron: "0 9 * * 1-5"}]
	actions: [{type: "notify", title: "Standup", message: "time for standup"}]
}
`)

	result, errs := LoadPlaybooks(tmpDir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Playbooks, 2)

	deploy := findPlaybook(t, result.Playbooks, "deploy-watch")
	assert.Equal(t, "Deploy Watch", deploy.Name)
	assert.True(t, deploy.Enabled)
	require.Len(t, deploy.Triggers, 1)
	kw, ok := deploy.Triggers[0].(playbook.KeywordTrigger)
	require.True(t, ok, "triggers[0] = %T", deploy.Triggers[0])
	assert.Equal(t, `(?i)deploy`, kw.Pattern)
	assert.Equal(t, playbook.SourceOCR, kw.Source)
	require.NotNil(t, kw.Threshold)
	assert.Equal(t, 0.8, *kw.Threshold)
	require.Len(t, deploy.Actions, 1)
	wh, ok := deploy.Actions[0].(playbook.WebhookAction)
	require.True(t, ok, "actions[0] = %T", deploy.Actions[0])
	assert.Equal(t, playbook.MethodPost, wh.Method)
	require.NotNil(t, deploy.CooldownMinutes)
	assert.Equal(t, uint(30), *deploy.CooldownMinutes)

	standup := findPlaybook(t, result.Playbooks, "standup")
	assert.False(t, standup.Enabled)
	assert.Equal(t, playbook.TimeTrigger{Cron: "0 9 * * 1-5"}, standup.Triggers[0])
}

func TestLoadPlaybooks_LabelBecomesID(t *testing.T) {
	tmpDir := t.TempDir()

	writeCUE(t, tmpDir, "pb.cue", `
package playbooks

playbook: "from-label": {
	name: "Label"
	triggers: [{type: "app_open", app_name: "zoom"}]
	actions: [{type: "notify", title: "t", message: "m"}]
}

playbook: "ignored-label": {
	id:   "explicit-id"
	name: "Explicit"
	triggers: [{type: "app_open", app_name: "zoom"}]
	actions: [{type: "notify", title: "t", message: "m"}]
}
`)

	result, errs := LoadPlaybooks(tmpDir, LoadModeCollectAll)
	require.Empty(t, errs)

	findPlaybook(t, result.Playbooks, "from-label")
	findPlaybook(t, result.Playbooks, "explicit-id")
}

func TestLoadPlaybooks_NonExistentDirectory(t *testing.T) {
	result, errs := LoadPlaybooks("/nonexistent/directory/path", LoadModeCollectAll)
	require.Nil(t, result)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadPlaybooks_EmptyDirectory(t *testing.T) {
	result, errs := LoadPlaybooks(t.TempDir(), LoadModeCollectAll)
	require.Nil(t, result)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)
}

func TestLoadPlaybooks_CollectsAllValidationErrors(t *testing.T) {
	tmpDir := t.TempDir()

	writeCUE(t, tmpDir, "bad.cue", `
package playbooks

playbook: "no-actions": {
	name: "No Actions"
	triggers: [{type: "app_open", app_name: "zoom"}]
	actions: []
}

playbook: "no-name": {
	triggers: [{type: "app_open", app_name: "zoom"}]
	actions: [{type: "notify", title: "t", message: "m"}]
}
`)

	result, errs := LoadPlaybooks(tmpDir, LoadModeCollectAll)
	require.NotNil(t, result)
	assert.Len(t, errs, 2)
	assert.Empty(t, result.Playbooks)
}

func TestLoadPlaybooks_FailFastStopsAtFirstError(t *testing.T) {
	tmpDir := t.TempDir()

	writeCUE(t, tmpDir, "bad.cue", `
package playbooks

playbook: "bad-a": {
	name: "A"
	triggers: []
	actions: [{type: "notify", title: "t", message: "m"}]
}

playbook: "bad-b": {
	name: "B"
	triggers: []
	actions: [{type: "notify", title: "t", message: "m"}]
}
`)

	_, errs := LoadPlaybooks(tmpDir, LoadModeFailFast)
	assert.Len(t, errs, 1)
}

func TestLoadPlaybooks_UnknownTriggerTypeIsDecodeError(t *testing.T) {
	tmpDir := t.TempDir()

	writeCUE(t, tmpDir, "bad.cue", `
package playbooks

playbook: "bad": {
	name: "Bad"
	triggers: [{type: "telepathy"}]
	actions: [{type: "notify", title: "t", message: "m"}]
}
`)

	_, errs := LoadPlaybooks(tmpDir, LoadModeCollectAll)
	require.Len(t, errs, 1)

	var loadErr *LoadError
	require.True(t, errors.As(errs[0], &loadErr))
	assert.Equal(t, ErrCodeDecodeFailed, loadErr.Code)
	assert.Contains(t, loadErr.Message, "telepathy")
}

func TestLoadPlaybooks_LintFindingsAreWarnings(t *testing.T) {
	tmpDir := t.TempDir()

	// A malformed cron loads fine but the trigger will be dormant.
	writeCUE(t, tmpDir, "dormant.cue", `
package playbooks

playbook: "dormant": {
	name: "Dormant"
	triggers: [{type: "time", cron: "every tuesday"}]
	actions: [{type: "notify", title: "t", message: "m"}]
}
`)

	result, errs := LoadPlaybooks(tmpDir, LoadModeCollectAll)
	require.Empty(t, errs)
	require.Len(t, result.Playbooks, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "will never fire")
}

func TestFindCUEFiles(t *testing.T) {
	tmpDir := t.TempDir()

	writeCUE(t, tmpDir, "a.cue", "package playbooks\n")
	writeCUE(t, tmpDir, "b.cue", "package playbooks\n")
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(tmpDir, "sub"), 0755))

	files, err := FindCUEFiles(tmpDir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}
