package focus

import "time"

// SignalType distinguishes the outbound signals emitted by the engine.
type SignalType string

const (
	// SignalSessionCompleted fires when a work phase runs to completion.
	SignalSessionCompleted SignalType = "session_completed"
	// SignalBreakCompleted fires when a break phase finishes or is skipped.
	SignalBreakCompleted SignalType = "break_completed"
	// SignalProgress is the periodic countdown refresh for displays.
	SignalProgress SignalType = "progress"
)

// Signal is a one-way, fire-and-forget notification for observers. There
// is no acknowledgment or retry; a missed signal has no recovery path.
type Signal struct {
	Type                   SignalType
	Phase                  Phase
	Target                 string
	SessionsCompletedToday int
	Elapsed                time.Duration
	Remaining              time.Duration
	Paused                 bool
	At                     time.Time
}
