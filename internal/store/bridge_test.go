package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"focusdeck/internal/clock"
	"focusdeck/internal/focus"
)

func newTestBridge(t *testing.T, path string) (*Bridge, *focus.Engine, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC))
	eng := focus.NewEngine(clk, focus.Options{})
	b, err := Open(path, eng)
	if err != nil {
		t.Fatalf("open bridge: %v", err)
	}
	return b, eng, clk
}

func TestBridge_OpenMissingBlobUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	_, eng, _ := newTestBridge(t, path)

	if sess := eng.Session(); sess.Phase != focus.PhaseIdle {
		t.Errorf("expected idle session, got %s", sess.Phase)
	}
	if n := len(eng.Entries()); n != 0 {
		t.Errorf("expected empty ledger, got %d entries", n)
	}
}

func TestBridge_OpenMalformedBlobUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := os.WriteFile(path, []byte("corrupt!"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, eng, _ := newTestBridge(t, path)
	if sess := eng.Session(); sess.Phase != focus.PhaseIdle {
		t.Errorf("expected idle session on corrupt blob, got %s", sess.Phase)
	}
}

func TestBridge_MutationPersistsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	_, eng, clk := newTestBridge(t, path)

	eng.Start("task-1")
	clk.Advance(10 * time.Second)
	eng.Stop()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected snapshot written: %v", err)
	}
	snap, err := UnmarshalSnapshot(data)
	if err != nil {
		t.Fatalf("parse snapshot: %v", err)
	}
	if len(snap.TimeEntries) != 1 {
		t.Fatalf("expected 1 persisted entry, got %d", len(snap.TimeEntries))
	}
	if snap.TimeEntries[0].Duration != 10*time.Second {
		t.Errorf("expected 10s entry, got %s", snap.TimeEntries[0].Duration)
	}
	if snap.Session.Phase != focus.PhaseIdle {
		t.Errorf("expected idle session persisted, got %s", snap.Session.Phase)
	}
}

func TestBridge_SecondSurfaceHydratesFromBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	bridgeA, engA, clkA := newTestBridge(t, path)
	bridgeA.AddTask(Task{ID: "task-1", Title: "deep work"})

	engA.Start("task-1")
	clkA.Advance(10 * time.Second)
	engA.Stop()

	bridgeB, engB, _ := newTestBridge(t, path)
	if n := len(engB.Entries()); n != 1 {
		t.Fatalf("expected 1 entry after hydration, got %d", n)
	}
	tasks := bridgeB.Tasks()
	if len(tasks) != 1 || tasks[0].ID != "task-1" {
		t.Errorf("expected task registry hydrated, got %+v", tasks)
	}
}

func TestBridge_RefreshSkipsSelfWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	b, eng, clk := newTestBridge(t, path)

	refreshed := 0
	b.SetRefreshCallback(func() { refreshed++ })

	eng.Start("task-1")
	clk.Advance(10 * time.Second)
	eng.Stop()

	// A change notification for our own write must not re-apply the blob.
	b.refresh()
	if refreshed != 0 {
		t.Errorf("self-write triggered %d refreshes", refreshed)
	}
}

func TestBridge_RefreshAppliesExternalWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	bridgeA, engA, clkA := newTestBridge(t, path)
	bridgeB, engB, _ := newTestBridge(t, path)

	refreshed := 0
	bridgeB.SetRefreshCallback(func() { refreshed++ })

	bridgeA.AddTask(Task{ID: "task-1", Title: "deep work"})
	engA.Start("task-1")
	clkA.Advance(30 * time.Second)
	engA.Stop()

	bridgeB.refresh()
	if refreshed != 1 {
		t.Fatalf("expected 1 refresh, got %d", refreshed)
	}
	if n := len(engB.Entries()); n != 1 {
		t.Errorf("expected mirrored ledger, got %d entries", n)
	}
	if tasks := bridgeB.Tasks(); len(tasks) != 1 {
		t.Errorf("expected mirrored task registry, got %+v", tasks)
	}
}

func TestBridge_RefreshSkipsCorruptBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	b, eng, clk := newTestBridge(t, path)

	eng.Start("task-1")
	clk.Advance(10 * time.Second)
	eng.Stop()

	if err := os.WriteFile(path, []byte("corrupt!"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The refresh is skipped, leaving the current state in place.
	b.refresh()
	if n := len(eng.Entries()); n != 1 {
		t.Errorf("expected local state preserved, got %d entries", n)
	}
}

func TestBridge_DeleteTaskCascadesToLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	b, eng, clk := newTestBridge(t, path)
	b.AddTask(Task{ID: "task-1", Title: "doomed"})
	b.AddTask(Task{ID: "task-2", Title: "survivor"})

	eng.Start("task-1")
	clk.Advance(10 * time.Second)
	eng.Stop()
	eng.Start("task-2")
	clk.Advance(10 * time.Second)
	eng.Stop()

	if err := b.DeleteTask("task-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	entries := eng.Entries()
	if len(entries) != 1 || entries[0].TaskID != "task-2" {
		t.Errorf("expected cascade to remove task-1 entries, got %+v", entries)
	}
	if tasks := b.Tasks(); len(tasks) != 1 || tasks[0].ID != "task-2" {
		t.Errorf("expected task removed from registry, got %+v", tasks)
	}

	if err := b.DeleteTask("task-1"); err == nil {
		t.Error("expected error deleting unknown task")
	}
}

func TestBridge_CompleteTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	b, _, _ := newTestBridge(t, path)
	b.AddTask(Task{ID: "task-1", Title: "tick me off"})

	if err := b.CompleteTask("task-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if tasks := b.Tasks(); !tasks[0].Completed {
		t.Error("expected task marked completed")
	}
	if err := b.CompleteTask("nope"); err == nil {
		t.Error("expected error for unknown task")
	}
}

func TestBridge_TimeForProjectIncludesDescendants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	b, eng, clk := newTestBridge(t, path)
	b.AddProject(Project{ID: "p1", Name: "root"})
	b.AddProject(Project{ID: "p2", Name: "child", ParentID: "p1"})
	b.AddTask(Task{ID: "task-1", ProjectID: "p1", Title: "a"})
	b.AddTask(Task{ID: "task-2", ProjectID: "p2", Title: "b"})
	b.AddTask(Task{ID: "task-3", Title: "unassigned"})

	for _, id := range []string{"task-1", "task-2", "task-3"} {
		eng.Start(id)
		clk.Advance(10 * time.Second)
		eng.Stop()
	}

	if got := b.TimeForProject("p1"); got != 20*time.Second {
		t.Errorf("expected 20s for root project, got %s", got)
	}
	if got := b.TimeForProject("p2"); got != 10*time.Second {
		t.Errorf("expected 10s for child project, got %s", got)
	}
}

// Two replicas issuing stop within the same logical tick race on the blob.
// Last writer wins; the append-only ledger bounds the damage to at most one
// duplicate-looking entry and never corrupts existing entries.
func TestBridge_ConcurrentStopRaceDamageBound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	bridgeA, engA, clkA := newTestBridge(t, path)

	// Surface A records a prior session, then starts a new one.
	engA.Start("task-1")
	clkA.Advance(10 * time.Second)
	engA.Stop()
	engA.Start("task-1")
	clkA.Advance(20 * time.Second)

	// Persist the running session so surface B hydrates mid-session.
	bridgeA.AddTask(Task{ID: "task-1", Title: "contested"})
	bridgeB, engB, clkB := newTestBridge(t, path)
	clkB.Set(clkA.Now())

	// Both surfaces stop within the same tick.
	engA.Stop()
	engB.Stop()

	// Change notifications arrive; each surface re-reads the blob. B wrote
	// last, so B skips its own write and A applies B's snapshot.
	bridgeA.refresh()
	bridgeB.refresh()

	for name, eng := range map[string]*focus.Engine{"A": engA, "B": engB} {
		entries := eng.Entries()
		if len(entries) < 2 || len(entries) > 3 {
			t.Fatalf("replica %s: expected 2 or 3 entries, got %d", name, len(entries))
		}
		// The pre-existing entry is never corrupted.
		if entries[0].Duration != 10*time.Second {
			t.Errorf("replica %s: first entry corrupted: %s", name, entries[0].Duration)
		}
		// Any raced entries look identical.
		for _, e := range entries[1:] {
			if e.TaskID != "task-1" || e.Duration != 20*time.Second {
				t.Errorf("replica %s: unexpected raced entry %+v", name, e)
			}
		}
		if sess := eng.Session(); sess.Phase != focus.PhaseIdle {
			t.Errorf("replica %s: expected idle, got %s", name, sess.Phase)
		}
	}
}
