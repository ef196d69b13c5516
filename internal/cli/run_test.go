package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reflexhq/reflex/internal/playbook"
	"github.com/reflexhq/reflex/internal/store"
)

func TestRunNonExistentPlaybooksDir(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--playbooks", "/nonexistent/directory"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load playbook definitions")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunInvalidPlaybookDefinitions(t *testing.T) {
	tmpDir := t.TempDir()
	playbooksDir := filepath.Join(tmpDir, "playbooks")
	dbPath := filepath.Join(tmpDir, "test.db")
	require.NoError(t, os.MkdirAll(playbooksDir, 0755))

	invalid := `
package playbooks

playbook: "broken": {
	name: "Broken"
	triggers: []
	actions: [{type: "notify", title: "t", message: "m"}]
}
`
	require.NoError(t, os.WriteFile(filepath.Join(playbooksDir, "broken.cue"), []byte(invalid), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--playbooks", playbooksDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load playbook definitions")
}

func TestRunStartsAndStopsWithTimeout(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(bytes.NewBufferString("")) // immediate EOF; ticker keeps the engine alive
	cmd.SetArgs([]string{"--db", dbPath})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- cmd.ExecuteContext(ctx)
	}()

	select {
	case err := <-errChan:
		// Context expiry is a graceful shutdown, not an engine error.
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("command did not respect context timeout")
	}

	assert.Contains(t, buf.String(), "Engine started")

	// First run seeds the builtin playbooks.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	pbs, err := st.ListPlaybooks(context.Background())
	require.NoError(t, err)
	assert.Len(t, pbs, len(playbook.Builtins()))
	for _, pb := range pbs {
		assert.True(t, pb.IsBuiltin)
		assert.False(t, pb.Enabled, "builtins must seed disabled")
	}
}

func TestRunImportsCUEPlaybooks(t *testing.T) {
	tmpDir := t.TempDir()
	playbooksDir := filepath.Join(tmpDir, "playbooks")
	dbPath := filepath.Join(tmpDir, "test.db")
	require.NoError(t, os.MkdirAll(playbooksDir, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(playbooksDir, "focus.cue"), []byte(validPlaybookCUE), 0644))

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(bytes.NewBufferString(""))
	cmd.SetArgs([]string{"--db", dbPath, "--playbooks", playbooksDir})

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_ = cmd.ExecuteContext(ctx)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	got, err := st.GetPlaybook(context.Background(), "focus-guard")
	require.NoError(t, err)
	assert.Equal(t, "Focus guard", got.Name)
	assert.True(t, got.Enabled)
}

type savedRecorder struct {
	saved []playbook.Playbook
}

func (r *savedRecorder) SavePlaybook(_ context.Context, pb playbook.Playbook, _ time.Time) error {
	r.saved = append(r.saved, pb)
	return nil
}

func TestImportPlaybooks(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "focus.cue"), []byte(validPlaybookCUE), 0644))

	rec := &savedRecorder{}
	err := importPlaybooks(context.Background(), rec, tmpDir, time.Now())
	require.NoError(t, err)
	require.Len(t, rec.saved, 1)
	assert.Equal(t, "focus-guard", rec.saved[0].ID)
}

func TestRunHelpText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRunCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Start the playbook engine")
	assert.Contains(t, output, "--db")
	assert.Contains(t, output, "--playbooks")
}
