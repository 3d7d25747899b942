package focus

import "time"

// Phase represents the timer mode of the current session.
type Phase string

const (
	PhaseIdle  Phase = "idle"
	PhaseWork  Phase = "work"
	PhaseBreak Phase = "break"
)

const (
	// DefaultWorkDuration is the length of a full work phase.
	DefaultWorkDuration = 25 * time.Minute
	// DefaultBreakDuration is the length of a full break phase.
	DefaultBreakDuration = 5 * time.Minute
	// MinRecordable is the smallest elapsed work time that produces a
	// ledger entry. Shorter sessions are discarded on stop.
	MinRecordable = 5 * time.Second
)

// Session is the single mutable "current session" record. A zero value is
// an idle session. TargetID is empty for an untracked eye-rest session,
// which runs the timer and transitions phases but never writes the ledger.
//
// Invariant: Anchor is non-nil iff Phase is work or break and the session
// is not paused. While paused, Anchor is nil and PausedElapsed holds the
// frozen elapsed value.
type Session struct {
	TargetID               string
	Phase                  Phase
	Anchor                 *time.Time
	SessionsCompletedToday int
	Paused                 bool
	PausedElapsed          time.Duration
}

// Elapsed returns the accumulated active time of the current phase.
func (s Session) Elapsed(now time.Time) time.Duration {
	if s.Paused {
		return s.PausedElapsed
	}
	if s.Anchor == nil {
		return 0
	}
	return now.Sub(*s.Anchor)
}

// start begins a work session for the given target. Valid from any state.
// The daily counter is preserved: starting a session must never reset it.
// If a work session for a different target is already running, its unsaved
// elapsed time is discarded; callers are expected to stop() first.
func (s Session) start(targetID string, now time.Time) Session {
	s.TargetID = targetID
	s.Phase = PhaseWork
	s.Anchor = &now
	s.Paused = false
	s.PausedElapsed = 0
	return s
}

// pauseResume toggles the paused flag. A no-op while idle. On pause the
// elapsed value is frozen and the anchor cleared; on resume the anchor is
// rewound so that now minus anchor reconstructs the cumulative elapsed.
func (s Session) pauseResume(now time.Time) Session {
	if s.Phase == PhaseIdle {
		return s
	}
	if s.Paused {
		anchor := now.Add(-s.PausedElapsed)
		s.Anchor = &anchor
		s.Paused = false
		s.PausedElapsed = 0
		return s
	}
	s.PausedElapsed = s.Elapsed(now)
	s.Paused = true
	s.Anchor = nil
	return s
}

// stop resets the session to idle. Valid from any state. If a tracked work
// session accumulated at least MinRecordable, the recordable entry is
// returned for the ledger. Stop is the one transition that clears the
// daily counter: it signals "done working for now," unlike the natural
// work-to-break rollover which preserves it.
func (s Session) stop(now time.Time) (Session, *TimeEntry) {
	entry := s.recordable(now)
	return Session{Phase: PhaseIdle}, entry
}

// completeWork rolls the session from work into break, incrementing the
// daily counter. The target is kept so a subsequent skip resumes focus on
// the same task. Returns the ledger entry for a tracked session.
func (s Session) completeWork(now time.Time) (Session, *TimeEntry) {
	entry := s.recordable(now)
	s.Phase = PhaseBreak
	s.Anchor = &now
	s.Paused = false
	s.PausedElapsed = 0
	s.SessionsCompletedToday++
	return s, entry
}

// completeBreak rolls the session from break back into work, leaving the
// target and daily counter untouched. Break time is never recorded.
func (s Session) completeBreak(now time.Time) Session {
	s.Phase = PhaseWork
	s.Anchor = &now
	s.Paused = false
	s.PausedElapsed = 0
	return s
}

// recordable returns the TimeEntry for the current work session, or nil
// if the session is untracked, not in work, or below the minimum duration.
func (s Session) recordable(now time.Time) *TimeEntry {
	if s.Phase != PhaseWork || s.TargetID == "" {
		return nil
	}
	elapsed := s.Elapsed(now)
	if elapsed < MinRecordable {
		return nil
	}
	return newTimeEntry(s.TargetID, now.Add(-elapsed), now)
}
