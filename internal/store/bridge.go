package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"focusdeck/internal/focus"
)

// Bridge connects the in-memory engine state to the shared snapshot blob.
// Every mutation writes the whole whitelisted state; a change written by
// the other UI surface is detected through the file watcher and applied by
// discarding local state and re-reading the full blob. Last writer wins:
// there is no merge and no conflict detection.
type Bridge struct {
	mu       sync.Mutex
	path     string
	writerID string
	engine   *focus.Engine
	tasks    []Task
	projects []Project
	watcher  *Watcher

	// onRefresh is notified after an external snapshot has been applied.
	onRefresh func()
}

// Open loads the snapshot at path (falling back to defaults when the file
// is missing or malformed), hydrates the engine from it and registers the
// engine's mutation hook so every subsequent mutation is persisted.
func Open(path string, engine *focus.Engine) (*Bridge, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}

	b := &Bridge{
		path:     path,
		writerID: uuid.New().String(),
		engine:   engine,
	}

	if snap, ok := b.read(); ok {
		b.tasks = snap.Tasks
		b.projects = snap.Projects
		engine.Restore(snap.Session, snap.TimeEntries)
	}

	engine.SetMutationHook(b.persist)
	return b, nil
}

// SetRefreshCallback registers the callback fired after an external change
// has been applied.
func (b *Bridge) SetRefreshCallback(fn func()) {
	b.mu.Lock()
	b.onRefresh = fn
	b.mu.Unlock()
}

// Watch starts observing the snapshot file for writes from the other
// surface.
func (b *Bridge) Watch() error {
	w, err := WatchFile(b.path, b.refresh)
	if err != nil {
		return fmt.Errorf("watch snapshot: %w", err)
	}
	b.mu.Lock()
	b.watcher = w
	b.mu.Unlock()
	return nil
}

// Close stops the watcher.
func (b *Bridge) Close() {
	b.mu.Lock()
	w := b.watcher
	b.watcher = nil
	b.mu.Unlock()

	if w != nil {
		w.Close()
	}
}

// WriterID identifies this surface's writes in the blob.
func (b *Bridge) WriterID() string {
	return b.writerID
}

// Tasks returns a copy of the task registry.
func (b *Bridge) Tasks() []Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Task, len(b.tasks))
	copy(out, b.tasks)
	return out
}

// Projects returns a copy of the project registry.
func (b *Bridge) Projects() []Project {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Project, len(b.projects))
	copy(out, b.projects)
	return out
}

// AddTask registers a task in the snapshot.
func (b *Bridge) AddTask(task Task) {
	b.mu.Lock()
	b.tasks = append(b.tasks, task)
	b.mu.Unlock()

	b.persist()
}

// AddProject registers a project in the snapshot.
func (b *Bridge) AddProject(project Project) {
	b.mu.Lock()
	b.projects = append(b.projects, project)
	b.mu.Unlock()

	b.persist()
}

// CompleteTask marks a task as completed. This is the kind of
// non-conflicting command the companion widget issues.
func (b *Bridge) CompleteTask(taskID string) error {
	b.mu.Lock()
	found := false
	for i := range b.tasks {
		if b.tasks[i].ID == taskID {
			b.tasks[i].Completed = true
			found = true
			break
		}
	}
	b.mu.Unlock()

	if !found {
		return fmt.Errorf("task not found: %s", taskID)
	}
	b.persist()
	return nil
}

// DeleteTask removes a task and cascades the deletion to every ledger
// entry referencing it.
func (b *Bridge) DeleteTask(taskID string) error {
	b.mu.Lock()
	kept := b.tasks[:0]
	found := false
	for _, t := range b.tasks {
		if t.ID == taskID {
			found = true
			continue
		}
		kept = append(kept, t)
	}
	b.tasks = kept
	b.mu.Unlock()

	if !found {
		return fmt.Errorf("task not found: %s", taskID)
	}
	b.engine.RemoveEntriesForTask(taskID)
	b.persist()
	return nil
}

// TimeForProject sums TimeForTask over every task belonging to the project
// or to any of its descendant projects.
func (b *Bridge) TimeForProject(projectID string) time.Duration {
	b.mu.Lock()
	ids := b.taskIDsForProjectLocked(projectID)
	b.mu.Unlock()

	return b.engine.TimeForTasks(ids)
}

func (b *Bridge) taskIDsForProjectLocked(projectID string) []string {
	members := map[string]bool{projectID: true}
	// Resolve descendant projects; the hierarchy is shallow so repeated
	// passes until fixpoint are fine.
	for changed := true; changed; {
		changed = false
		for _, p := range b.projects {
			if p.ParentID != "" && members[p.ParentID] && !members[p.ID] {
				members[p.ID] = true
				changed = true
			}
		}
	}

	var ids []string
	for _, t := range b.tasks {
		if t.ProjectID != "" && members[t.ProjectID] {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

// persist serializes the whole whitelisted state to the blob. Failures are
// logged and swallowed: persistence is best-effort and the engine state
// stays authoritative for this surface.
func (b *Bridge) persist() {
	session := b.engine.Session()
	entries := b.engine.Entries()

	b.mu.Lock()
	snap := Snapshot{
		WriterID:    b.writerID,
		Tasks:       append([]Task(nil), b.tasks...),
		Projects:    append([]Project(nil), b.projects...),
		TimeEntries: entries,
		Session:     session,
	}
	b.mu.Unlock()

	data, err := snap.Marshal(time.Now().UTC())
	if err != nil {
		log.Printf("store: marshal snapshot: %v", err)
		return
	}
	if err := os.WriteFile(b.path, data, 0o644); err != nil {
		log.Printf("store: write snapshot: %v", err)
	}
}

// refresh re-reads the blob after a change notification. Writes made by
// this surface are recognized by writer ID and skipped; anything
// unreadable is skipped too, leaving the current state in place.
func (b *Bridge) refresh() {
	snap, ok := b.read()
	if !ok {
		return
	}
	if snap.WriterID == b.writerID {
		return // self-write, already applied in memory
	}

	b.mu.Lock()
	b.tasks = snap.Tasks
	b.projects = snap.Projects
	fn := b.onRefresh
	b.mu.Unlock()

	b.engine.Restore(snap.Session, snap.TimeEntries)

	if fn != nil {
		fn()
	}
}

// read loads and parses the blob. A missing or malformed blob is reported
// as absent, never as an error: the caller keeps defaults or skips the
// refresh.
func (b *Bridge) read() (Snapshot, bool) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("store: read snapshot: %v", err)
		}
		return Snapshot{}, false
	}

	snap, err := UnmarshalSnapshot(data)
	if err != nil {
		log.Printf("store: parse snapshot: %v", err)
		return Snapshot{}, false
	}
	return snap, true
}
