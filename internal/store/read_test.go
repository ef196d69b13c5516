package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/reflexhq/reflex/internal/playbook"
)

func TestGetPlaybook_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetPlaybook(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestListPlaybooks_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	pbs, err := s.ListPlaybooks(context.Background())
	if err != nil {
		t.Fatalf("ListPlaybooks() failed: %v", err)
	}
	if pbs == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(pbs) != 0 {
		t.Errorf("got %d playbooks, want 0", len(pbs))
	}
}

func TestListPlaybooks_StableOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Inserted out of creation order on purpose.
	mustSavePlaybook(t, s, createTestPlaybook("pb-c", "Third"), base.Add(2*time.Hour))
	mustSavePlaybook(t, s, createTestPlaybook("pb-a", "First"), base)
	mustSavePlaybook(t, s, createTestPlaybook("pb-b", "Second"), base.Add(time.Hour))

	pbs, err := s.ListPlaybooks(ctx)
	if err != nil {
		t.Fatalf("ListPlaybooks() failed: %v", err)
	}
	if len(pbs) != 3 {
		t.Fatalf("got %d playbooks, want 3", len(pbs))
	}

	want := []string{"pb-a", "pb-b", "pb-c"}
	for i, id := range want {
		if pbs[i].ID != id {
			t.Errorf("pbs[%d].ID = %q, want %q", i, pbs[i].ID, id)
		}
	}
}

func TestListPlaybooks_TieBreaksOnID(t *testing.T) {
	s := createTestStore(t)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mustSavePlaybook(t, s, createTestPlaybook("pb-b", "B"), now)
	mustSavePlaybook(t, s, createTestPlaybook("pb-a", "A"), now)

	pbs, err := s.ListPlaybooks(context.Background())
	if err != nil {
		t.Fatalf("ListPlaybooks() failed: %v", err)
	}
	if pbs[0].ID != "pb-a" || pbs[1].ID != "pb-b" {
		t.Errorf("order = %s, %s; want pb-a, pb-b", pbs[0].ID, pbs[1].ID)
	}
}

func TestListEnabled_FiltersDisabled(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	on := createTestPlaybook("pb-on", "Enabled")
	off := createTestPlaybook("pb-off", "Disabled")
	off.Enabled = false
	mustSavePlaybook(t, s, on, now)
	mustSavePlaybook(t, s, off, now)

	pbs, err := s.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled() failed: %v", err)
	}
	if len(pbs) != 1 || pbs[0].ID != "pb-on" {
		t.Errorf("got %+v, want only pb-on", pbs)
	}
}

func TestTenantIsolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	a, err := Open(path, WithTenant("alpha"))
	if err != nil {
		t.Fatalf("Open(alpha) failed: %v", err)
	}
	mustSavePlaybook(t, a, createTestPlaybook("pb-1", "Alpha's"), now)
	if err := a.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	b, err := Open(path, WithTenant("beta"))
	if err != nil {
		t.Fatalf("Open(beta) failed: %v", err)
	}
	defer b.Close()

	if _, err := b.GetPlaybook(context.Background(), "pb-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("beta can see alpha's playbook: %v", err)
	}
}

func TestListExecutions_MostRecentFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	mustSavePlaybook(t, s, createTestPlaybook("pb-1", "History"), base)
	mustInsertExecution(t, s, createTestExecution("exec-1", "pb-1", base))
	mustInsertExecution(t, s, createTestExecution("exec-2", "pb-1", base.Add(time.Minute)))
	mustInsertExecution(t, s, createTestExecution("exec-3", "pb-1", base.Add(2*time.Minute)))

	execs, err := s.ListExecutions(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("ListExecutions() failed: %v", err)
	}

	want := []string{"exec-3", "exec-2", "exec-1"}
	if len(execs) != len(want) {
		t.Fatalf("got %d executions, want %d", len(execs), len(want))
	}
	for i, id := range want {
		if execs[i].ID != id {
			t.Errorf("execs[%d].ID = %q, want %q", i, execs[i].ID, id)
		}
	}
}

func TestListExecutions_Pagination(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	mustSavePlaybook(t, s, createTestPlaybook("pb-1", "Paged"), base)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		mustInsertExecution(t, s, createTestExecution("exec-"+id, "pb-1", base.Add(time.Duration(i)*time.Minute)))
	}

	page, err := s.ListExecutions(ctx, "pb-1", 2, 1)
	if err != nil {
		t.Fatalf("ListExecutions() failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("got %d executions, want 2", len(page))
	}
	// Skipping the newest (exec-e) gives exec-d then exec-c.
	if page[0].ID != "exec-d" || page[1].ID != "exec-c" {
		t.Errorf("page = %s, %s; want exec-d, exec-c", page[0].ID, page[1].ID)
	}
}

func TestListExecutions_FilterByPlaybook(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	mustSavePlaybook(t, s, createTestPlaybook("pb-1", "One"), base)
	mustSavePlaybook(t, s, createTestPlaybook("pb-2", "Two"), base)
	mustInsertExecution(t, s, createTestExecution("exec-1", "pb-1", base))
	mustInsertExecution(t, s, createTestExecution("exec-2", "pb-2", base))

	execs, err := s.ListExecutions(ctx, "pb-2", 0, 0)
	if err != nil {
		t.Fatalf("ListExecutions() failed: %v", err)
	}
	if len(execs) != 1 || execs[0].ID != "exec-2" {
		t.Errorf("got %+v, want only exec-2", execs)
	}
}

func TestCountRunning(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	mustSavePlaybook(t, s, createTestPlaybook("pb-1", "Counted"), base)
	mustInsertExecution(t, s, createTestExecution("exec-1", "pb-1", base))
	mustInsertExecution(t, s, createTestExecution("exec-2", "pb-1", base))
	if err := s.FinishExecution(ctx, "exec-2", playbook.StatusCompleted, base.Add(time.Second), nil, ""); err != nil {
		t.Fatalf("FinishExecution() failed: %v", err)
	}

	n, err := s.CountRunning(ctx)
	if err != nil {
		t.Fatalf("CountRunning() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountRunning() = %d, want 1", n)
	}
}
