package store

import (
	"encoding/json"
	"time"

	"focusdeck/internal/focus"
)

// Task is a minimal task record carried in the shared snapshot. Task
// editing and rendering belong to the task-management surfaces; the core
// only needs enough to resolve project membership and cascade deletes.
type Task struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId,omitempty"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// Project is a minimal project record. Projects nest via ParentID.
type Project struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
	Deadline int64  `json:"deadline,omitempty"` // unix milliseconds
}

// Snapshot is the full whitelisted state shared between UI surfaces.
type Snapshot struct {
	WriterID    string
	Tasks       []Task
	Projects    []Project
	TimeEntries []focus.TimeEntry
	Session     focus.Session
}

// Wire types. Timestamps and durations are unix/interval milliseconds.

type blobEntry struct {
	ID        string `json:"id"`
	TaskID    string `json:"taskId"`
	StartedAt int64  `json:"startedAt"`
	EndedAt   int64  `json:"endedAt"`
	Duration  int64  `json:"duration"`
}

type blobSession struct {
	TargetID               string `json:"targetId,omitempty"`
	Phase                  string `json:"phase"`
	Anchor                 *int64 `json:"anchor,omitempty"`
	SessionsCompletedToday int    `json:"sessionsCompletedToday"`
	Paused                 bool   `json:"paused"`
	PausedElapsed          int64  `json:"pausedElapsed"`
}

type blob struct {
	WriterID    string      `json:"writerId"`
	Tasks       []Task      `json:"tasks"`
	Projects    []Project   `json:"projects"`
	TimeEntries []blobEntry `json:"timeEntries"`
	Session     blobSession `json:"session"`
	UpdatedAt   int64       `json:"updatedAt"`
}

// Marshal serializes a snapshot to the shared blob format.
func (s Snapshot) Marshal(now time.Time) ([]byte, error) {
	b := blob{
		WriterID:  s.WriterID,
		Tasks:     s.Tasks,
		Projects:  s.Projects,
		UpdatedAt: now.UnixMilli(),
	}

	b.TimeEntries = make([]blobEntry, 0, len(s.TimeEntries))
	for _, e := range s.TimeEntries {
		b.TimeEntries = append(b.TimeEntries, blobEntry{
			ID:        e.ID,
			TaskID:    e.TaskID,
			StartedAt: e.StartedAt.UnixMilli(),
			EndedAt:   e.EndedAt.UnixMilli(),
			Duration:  e.Duration.Milliseconds(),
		})
	}

	b.Session = blobSession{
		TargetID:               s.Session.TargetID,
		Phase:                  string(s.Session.Phase),
		SessionsCompletedToday: s.Session.SessionsCompletedToday,
		Paused:                 s.Session.Paused,
		PausedElapsed:          s.Session.PausedElapsed.Milliseconds(),
	}
	if s.Session.Anchor != nil {
		ms := s.Session.Anchor.UnixMilli()
		b.Session.Anchor = &ms
	}

	return json.MarshalIndent(b, "", "  ")
}

// UnmarshalSnapshot parses the shared blob format.
func UnmarshalSnapshot(data []byte) (Snapshot, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return Snapshot{}, err
	}

	s := Snapshot{
		WriterID: b.WriterID,
		Tasks:    b.Tasks,
		Projects: b.Projects,
	}

	s.TimeEntries = make([]focus.TimeEntry, 0, len(b.TimeEntries))
	for _, e := range b.TimeEntries {
		s.TimeEntries = append(s.TimeEntries, focus.TimeEntry{
			ID:        e.ID,
			TaskID:    e.TaskID,
			StartedAt: time.UnixMilli(e.StartedAt).UTC(),
			EndedAt:   time.UnixMilli(e.EndedAt).UTC(),
			Duration:  time.Duration(e.Duration) * time.Millisecond,
		})
	}

	phase := focus.Phase(b.Session.Phase)
	switch phase {
	case focus.PhaseWork, focus.PhaseBreak:
	default:
		phase = focus.PhaseIdle
	}
	s.Session = focus.Session{
		TargetID:               b.Session.TargetID,
		Phase:                  phase,
		SessionsCompletedToday: b.Session.SessionsCompletedToday,
		Paused:                 b.Session.Paused,
		PausedElapsed:          time.Duration(b.Session.PausedElapsed) * time.Millisecond,
	}
	if b.Session.Anchor != nil {
		anchor := time.UnixMilli(*b.Session.Anchor).UTC()
		s.Session.Anchor = &anchor
	}

	return s, nil
}
