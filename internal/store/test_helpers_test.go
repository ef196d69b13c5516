package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

// createTestStore opens a store backed by a throwaway database file.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPlaybook builds a minimal valid playbook definition.
func createTestPlaybook(id, name string) playbook.Playbook {
	return playbook.Playbook{
		ID:      id,
		Name:    name,
		Enabled: true,
		Triggers: playbook.Triggers{
			playbook.AppOpenTrigger{AppName: "zoom"},
		},
		Actions: playbook.Actions{
			playbook.NotifyAction{Title: "hi", Message: "there"},
		},
	}
}

// createTestExecution builds a running execution record for the playbook.
func createTestExecution(id, playbookID string, startedAt time.Time) playbook.Execution {
	return playbook.Execution{
		ID:          id,
		PlaybookID:  playbookID,
		StartedAt:   startedAt,
		Status:      playbook.StatusRunning,
		TriggeredBy: playbook.AppOpenTrigger{AppName: "zoom"},
	}
}

// mustSavePlaybook saves a playbook or fails the test.
func mustSavePlaybook(t *testing.T, s *Store, pb playbook.Playbook, now time.Time) {
	t.Helper()
	if err := s.SavePlaybook(context.Background(), pb, now); err != nil {
		t.Fatalf("SavePlaybook(%s) failed: %v", pb.ID, err)
	}
}

// mustInsertExecution inserts an execution or fails the test.
func mustInsertExecution(t *testing.T, s *Store, exec playbook.Execution) {
	t.Helper()
	if err := s.InsertExecution(context.Background(), exec); err != nil {
		t.Fatalf("InsertExecution(%s) failed: %v", exec.ID, err)
	}
}
