package focus

import (
	"testing"
	"time"
)

func makeEntry(taskID string, d time.Duration) TimeEntry {
	start := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	return *newTimeEntry(taskID, start, start.Add(d))
}

func TestLedger_AppendPreservesOrder(t *testing.T) {
	l := NewLedger(nil)
	a := makeEntry("task-a", time.Minute)
	b := makeEntry("task-b", 2*time.Minute)
	c := makeEntry("task-a", 3*time.Minute)
	l.Append(a)
	l.Append(b)
	l.Append(c)

	entries := l.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].ID != a.ID || entries[1].ID != b.ID || entries[2].ID != c.ID {
		t.Error("entries out of insertion order")
	}
}

func TestLedger_EntriesReturnsCopy(t *testing.T) {
	l := NewLedger(nil)
	l.Append(makeEntry("task-a", time.Minute))

	entries := l.Entries()
	entries[0].TaskID = "mutated"

	if l.Entries()[0].TaskID != "task-a" {
		t.Error("ledger exposed its internal slice")
	}
}

func TestLedger_TotalForTask(t *testing.T) {
	l := NewLedger(nil)
	l.Append(makeEntry("task-a", time.Minute))
	l.Append(makeEntry("task-b", 5*time.Minute))
	l.Append(makeEntry("task-a", 2*time.Minute))

	if got := l.TotalForTask("task-a"); got != 3*time.Minute {
		t.Errorf("expected 3m, got %s", got)
	}
	if got := l.TotalForTask("task-c"); got != 0 {
		t.Errorf("expected 0 for unknown task, got %s", got)
	}
}

func TestLedger_RemoveForTask(t *testing.T) {
	l := NewLedger(nil)
	l.Append(makeEntry("task-a", time.Minute))
	l.Append(makeEntry("task-b", time.Minute))
	l.Append(makeEntry("task-a", time.Minute))

	if removed := l.RemoveForTask("task-a"); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	entries := l.Entries()
	if len(entries) != 1 || entries[0].TaskID != "task-b" {
		t.Errorf("expected only task-b to survive, got %+v", entries)
	}
	if removed := l.RemoveForTask("task-a"); removed != 0 {
		t.Errorf("expected 0 removed on second pass, got %d", removed)
	}
}

func TestNewTimeEntry_DurationMatchesInterval(t *testing.T) {
	start := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	e := newTimeEntry("task-a", start, end)

	if e.ID == "" {
		t.Error("expected generated ID")
	}
	if e.Duration != end.Sub(start) {
		t.Errorf("duration %s does not match interval", e.Duration)
	}
}
