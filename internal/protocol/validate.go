package protocol

import (
	"encoding/json"
	"fmt"
)

// validClientTypes is the set of allowed client→server message types.
var validClientTypes = map[string]bool{
	TypeTimerStart:       true,
	TypeTimerPauseResume: true,
	TypeTimerStop:        true,
	TypeTimerSkipBreak:   true,
	TypeTaskComplete:     true,
	TypeTaskDelete:       true,
}

// ValidateClientMessage validates a raw JSON message from a client.
// Returns the parsed Message and any validation error.
func ValidateClientMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if msg.Type == "" {
		return nil, fmt.Errorf("missing 'type' field")
	}

	if !validClientTypes[msg.Type] {
		return nil, fmt.Errorf("unknown message type: %s", msg.Type)
	}

	if msg.Payload == nil {
		return nil, fmt.Errorf("missing 'payload' field")
	}

	// Validate required payload fields per type.
	switch msg.Type {
	case TypeTimerStart:
		// taskId is optional: an empty target is an eye-rest session.
		var p TimerStartPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid payload for %s: %w", msg.Type, err)
		}

	case TypeTaskComplete, TypeTaskDelete:
		var p TaskIDPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return nil, fmt.Errorf("invalid payload for %s: %w", msg.Type, err)
		}
		if p.TaskID == "" {
			return nil, fmt.Errorf("missing required field 'taskId' in %s payload", msg.Type)
		}

	case TypeTimerPauseResume, TypeTimerStop, TypeTimerSkipBreak:
		// No payload fields; the envelope carries an empty object.
		if !json.Valid(msg.Payload) {
			return nil, fmt.Errorf("invalid payload for %s", msg.Type)
		}
	}

	return &msg, nil
}
