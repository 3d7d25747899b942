package focus

import (
	"time"

	"github.com/google/uuid"
)

// TimeEntry is a completed, recorded focus session. Entries are immutable
// once created: Duration always equals EndedAt minus StartedAt.
type TimeEntry struct {
	ID        string
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
}

func newTimeEntry(taskID string, startedAt, endedAt time.Time) *TimeEntry {
	return &TimeEntry{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		StartedAt: startedAt,
		EndedAt:   endedAt,
		Duration:  endedAt.Sub(startedAt),
	}
}

// Ledger is the append-only, insertion-ordered history of completed focus
// sessions. Existing entries are never edited or reordered; the only
// removal is the bulk cascade when a task is deleted.
type Ledger struct {
	entries []TimeEntry
}

// NewLedger creates a ledger seeded with existing entries.
func NewLedger(entries []TimeEntry) *Ledger {
	l := &Ledger{}
	l.entries = append(l.entries, entries...)
	return l
}

// Append adds an entry to the end of the ledger.
func (l *Ledger) Append(entry TimeEntry) {
	l.entries = append(l.entries, entry)
}

// Entries returns a copy of all entries in insertion order.
func (l *Ledger) Entries() []TimeEntry {
	out := make([]TimeEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// TotalForTask sums the recorded duration of all entries for a task.
func (l *Ledger) TotalForTask(taskID string) time.Duration {
	var total time.Duration
	for _, e := range l.entries {
		if e.TaskID == taskID {
			total += e.Duration
		}
	}
	return total
}

// RemoveForTask deletes every entry referencing the given task and reports
// how many were removed. Invoked only by the task-deletion cascade.
func (l *Ledger) RemoveForTask(taskID string) int {
	kept := l.entries[:0]
	removed := 0
	for _, e := range l.entries {
		if e.TaskID == taskID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	l.entries = kept
	return removed
}
