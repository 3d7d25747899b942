package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a server-originated message with the current timestamp.
func NewMessage(msgType string, payload interface{}) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		Type:      msgType,
		Payload:   data,
		Timestamp: time.Now().UTC(),
	}, nil
}

// Server → Client message types.
const (
	TypeTimerProgress    = "timer.progress"
	TypeSessionCompleted = "session.completed"
	TypeBreakCompleted   = "break.completed"
	TypeSnapshotUpdate   = "snapshot.update"
	TypeError            = "error"
)

// Client → Server message types.
const (
	TypeTimerStart       = "timer.start"
	TypeTimerPauseResume = "timer.pauseResume"
	TypeTimerStop        = "timer.stop"
	TypeTimerSkipBreak   = "timer.skipBreak"
	TypeTaskComplete     = "task.complete"
	TypeTaskDelete       = "task.delete"
)

// Error codes.
const (
	ErrTaskNotFound   = "TASK_NOT_FOUND"
	ErrInvalidMessage = "INVALID_MESSAGE"
)

// Server → Client payloads.

// TimerProgressPayload refreshes the displayed countdown. Durations are
// milliseconds.
type TimerProgressPayload struct {
	Phase                  string `json:"phase"`
	TargetID               string `json:"targetId,omitempty"`
	Elapsed                int64  `json:"elapsed"`
	Remaining              int64  `json:"remaining"`
	Paused                 bool   `json:"paused"`
	SessionsCompletedToday int    `json:"sessionsCompletedToday"`
}

type SessionCompletedPayload struct {
	Target                 string `json:"target,omitempty"`
	SessionsCompletedToday int    `json:"sessionsCompletedToday"`
}

type BreakCompletedPayload struct{}

// SnapshotUpdatePayload tells clients the shared snapshot changed; they
// re-read the full state, there is no delta.
type SnapshotUpdatePayload struct {
	Key string `json:"key"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Client → Server payloads.

// TimerStartPayload starts a work session. An empty task ID starts an
// untracked eye-rest session.
type TimerStartPayload struct {
	TaskID string `json:"taskId,omitempty"`
}

type TaskIDPayload struct {
	TaskID string `json:"taskId"`
}

// NewErrorMessage creates an error message ready to send to the client.
func NewErrorMessage(code, message string) (*Message, error) {
	return NewMessage(TypeError, ErrorPayload{
		Code:    code,
		Message: message,
	})
}
