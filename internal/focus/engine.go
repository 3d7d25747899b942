package focus

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"focusdeck/internal/clock"
)

const (
	defaultTickInterval    = 500 * time.Millisecond
	defaultSubscriberBuf   = 100
	defaultRecentSignalCap = 64
)

// Options contains runtime options for the Engine.
type Options struct {
	WorkDuration  time.Duration
	BreakDuration time.Duration
	TickInterval  time.Duration
}

// Engine owns the current Session and the Ledger and is the only writer of
// either. All five transitions are total: illegal calls are no-ops, never
// errors. Phase completion is detected by polling accumulated elapsed time
// against the phase duration on every Tick, so a process that slept
// through a phase simply computes a large elapsed value on wake and
// completes immediately.
type Engine struct {
	mu      sync.Mutex
	clock   clock.Clock
	opts    Options
	session Session
	ledger  *Ledger

	subscribers map[string]chan Signal
	recent      *RingBuffer
	stopCh      chan struct{}
	running     bool

	// onMutate is invoked after every state mutation, outside the lock.
	// The persistence bridge uses it to write the shared snapshot.
	onMutate func()
}

// NewEngine creates an Engine in the idle phase.
func NewEngine(clk clock.Clock, opts Options) *Engine {
	if opts.WorkDuration <= 0 {
		opts.WorkDuration = DefaultWorkDuration
	}
	if opts.BreakDuration <= 0 {
		opts.BreakDuration = DefaultBreakDuration
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	return &Engine{
		clock:       clk,
		opts:        opts,
		session:     Session{Phase: PhaseIdle},
		ledger:      NewLedger(nil),
		subscribers: make(map[string]chan Signal),
		recent:      NewRingBuffer(defaultRecentSignalCap),
		stopCh:      make(chan struct{}),
	}
}

// SetMutationHook registers the callback invoked after every mutation.
func (e *Engine) SetMutationHook(fn func()) {
	e.mu.Lock()
	e.onMutate = fn
	e.mu.Unlock()
}

// Subscribe registers an observer. It returns a subscription ID for
// unsubscribing, the signal channel, and the buffered history of recent
// completion signals so late subscribers can catch up.
func (e *Engine) Subscribe() (string, <-chan Signal, []Signal) {
	subID := uuid.New().String()
	ch := make(chan Signal, defaultSubscriberBuf)

	history := e.recent.ReadAll()

	e.mu.Lock()
	e.subscribers[subID] = ch
	e.mu.Unlock()

	return subID, ch, history
}

// Unsubscribe removes an observer and closes its channel.
func (e *Engine) Unsubscribe(subID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ch, ok := e.subscribers[subID]; ok {
		delete(e.subscribers, subID)
		close(ch)
	}
}

// Run launches the tick loop. The loop only refreshes the displayed
// countdown and polls for phase completion; it performs no elapsed-time
// accounting of its own.
func (e *Engine) Run() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	go e.run()
}

func (e *Engine) run() {
	ticker := time.NewTicker(e.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.Tick(e.clock.Now())
		}
	}
}

// Close terminates the tick loop and closes all observer channels.
func (e *Engine) Close() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	close(e.stopCh)
	e.running = false
	for id, ch := range e.subscribers {
		delete(e.subscribers, id)
		close(ch)
	}
	e.mu.Unlock()
}

// Start begins a work session for the given target; an empty target starts
// an untracked eye-rest session. Valid from any state. An already-running
// session for a different target loses its unsaved elapsed time.
func (e *Engine) Start(targetID string) {
	now := e.clock.Now()

	e.mu.Lock()
	if e.session.Phase == PhaseWork && e.session.TargetID != "" && e.session.TargetID != targetID {
		if discarded := e.session.Elapsed(now); discarded > 0 {
			log.Printf("focus: discarding %s of unsaved time for task %s", discarded, e.session.TargetID)
		}
	}
	e.session = e.session.start(targetID, now)
	sig := e.progressLocked(now)
	e.mu.Unlock()

	e.emit(sig)
	e.mutated()
}

// PauseResume toggles the paused flag. A no-op while idle.
func (e *Engine) PauseResume() {
	now := e.clock.Now()

	e.mu.Lock()
	if e.session.Phase == PhaseIdle {
		e.mu.Unlock()
		return
	}
	e.session = e.session.pauseResume(now)
	sig := e.progressLocked(now)
	e.mu.Unlock()

	e.emit(sig)
	e.mutated()
}

// Stop resets the session to idle, recording a ledger entry if a tracked
// work session accumulated at least the minimum duration. Stop is the
// universal escape hatch: callable from any state, always synchronous.
func (e *Engine) Stop() {
	now := e.clock.Now()

	e.mu.Lock()
	next, entry := e.session.stop(now)
	e.session = next
	if entry != nil {
		e.ledger.Append(*entry)
	}
	sig := e.progressLocked(now)
	e.mu.Unlock()

	e.emit(sig)
	e.mutated()
}

// SkipBreak abandons the current break and returns to work on the same
// target. A no-op unless a break is running.
func (e *Engine) SkipBreak() {
	now := e.clock.Now()

	e.mu.Lock()
	if e.session.Phase != PhaseBreak {
		e.mu.Unlock()
		return
	}
	e.session = e.session.completeBreak(now)
	sig := Signal{
		Type:                   SignalBreakCompleted,
		Phase:                  e.session.Phase,
		Target:                 e.session.TargetID,
		SessionsCompletedToday: e.session.SessionsCompletedToday,
		At:                     now,
	}
	e.recent.Write(sig)
	e.mu.Unlock()

	e.emit(sig)
	e.mutated()
}

// Tick re-evaluates the session against the phase durations at the given
// instant, completing the phase when its time is up, and emits a progress
// signal otherwise. Safe to call at arbitrary frequency.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()
	if e.session.Phase == PhaseIdle || e.session.Paused {
		e.mu.Unlock()
		return
	}

	var sig Signal
	completed := false
	elapsed := e.session.Elapsed(now)

	switch {
	case e.session.Phase == PhaseWork && elapsed >= e.opts.WorkDuration:
		next, entry := e.session.completeWork(now)
		e.session = next
		if entry != nil {
			e.ledger.Append(*entry)
		}
		sig = Signal{
			Type:                   SignalSessionCompleted,
			Phase:                  e.session.Phase,
			Target:                 e.session.TargetID,
			SessionsCompletedToday: e.session.SessionsCompletedToday,
			At:                     now,
		}
		e.recent.Write(sig)
		completed = true

	case e.session.Phase == PhaseBreak && elapsed >= e.opts.BreakDuration:
		e.session = e.session.completeBreak(now)
		sig = Signal{
			Type:                   SignalBreakCompleted,
			Phase:                  e.session.Phase,
			Target:                 e.session.TargetID,
			SessionsCompletedToday: e.session.SessionsCompletedToday,
			At:                     now,
		}
		e.recent.Write(sig)
		completed = true

	default:
		sig = e.progressLocked(now)
	}
	e.mu.Unlock()

	e.emit(sig)
	if completed {
		e.mutated()
	}
}

// Progress returns the countdown-refresh view of the current state, the
// same shape the tick loop emits.
func (e *Engine) Progress() Signal {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.progressLocked(now)
}

// Session returns a copy of the current session.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// Entries returns a copy of the ledger in insertion order.
func (e *Engine) Entries() []TimeEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Entries()
}

// TimeForTask returns the total time spent on a task: the ledger sum plus
// the in-flight elapsed time of a running work session targeting it. The
// result is exact and monotonically non-decreasing while such a session is
// active. Pure and side-effect free.
func (e *Engine) TimeForTask(taskID string) time.Duration {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.timeForTaskLocked(taskID, now)
}

// TimeForTasks sums TimeForTask over a set of tasks. Callers resolve which
// tasks belong to a project; there is no project-level in-flight shortcut.
func (e *Engine) TimeForTasks(taskIDs []string) time.Duration {
	now := e.clock.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	var total time.Duration
	for _, id := range taskIDs {
		total += e.timeForTaskLocked(id, now)
	}
	return total
}

func (e *Engine) timeForTaskLocked(taskID string, now time.Time) time.Duration {
	total := e.ledger.TotalForTask(taskID)
	if e.session.Phase == PhaseWork && e.session.TargetID == taskID {
		total += e.session.Elapsed(now)
	}
	return total
}

// RemoveEntriesForTask deletes every ledger entry referencing a task, the
// cascade invoked when the task itself is deleted.
func (e *Engine) RemoveEntriesForTask(taskID string) int {
	e.mu.Lock()
	removed := e.ledger.RemoveForTask(taskID)
	e.mu.Unlock()

	if removed > 0 {
		e.mutated()
	}
	return removed
}

// Restore replaces the session and ledger with externally persisted state.
// Used by the sync bridge when the other UI surface wrote the snapshot; it
// deliberately does not fire the mutation hook, so a rehydrate can never
// echo back as a write.
func (e *Engine) Restore(session Session, entries []TimeEntry) {
	now := e.clock.Now()

	e.mu.Lock()
	e.session = session
	e.ledger = NewLedger(entries)
	sig := e.progressLocked(now)
	e.mu.Unlock()

	e.emit(sig)
}

// progressLocked builds the countdown-refresh signal for the current state.
func (e *Engine) progressLocked(now time.Time) Signal {
	elapsed := e.session.Elapsed(now)
	var remaining time.Duration
	switch e.session.Phase {
	case PhaseWork:
		remaining = e.opts.WorkDuration - elapsed
	case PhaseBreak:
		remaining = e.opts.BreakDuration - elapsed
	}
	if remaining < 0 {
		remaining = 0
	}
	return Signal{
		Type:                   SignalProgress,
		Phase:                  e.session.Phase,
		Target:                 e.session.TargetID,
		SessionsCompletedToday: e.session.SessionsCompletedToday,
		Elapsed:                elapsed,
		Remaining:              remaining,
		Paused:                 e.session.Paused,
		At:                     now,
	}
}

// emit sends a signal to all subscribers without blocking. The lock is
// held during the sends so a concurrent Unsubscribe cannot close a channel
// mid-send.
func (e *Engine) emit(sig Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ch := range e.subscribers {
		select {
		case ch <- sig:
		default:
			// Subscriber channel full, drop the signal.
		}
	}
}

func (e *Engine) mutated() {
	e.mu.Lock()
	fn := e.onMutate
	e.mu.Unlock()

	if fn != nil {
		fn()
	}
}
