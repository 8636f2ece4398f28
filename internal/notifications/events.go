package notifications

import (
	"encoding/json"
	"fmt"
)

// Event types pushed to users when a connection changes.
const (
	EventConnectionRequested = "connection.requested"
	EventConnectionAccepted  = "connection.accepted"
	EventConnectionDeclined  = "connection.declined"
	EventConnectionWithdrawn = "connection.withdrawn"
	EventConnectionBlocked   = "connection.blocked"

	// EventConnected greets a socket once it is registered.
	EventConnected = "connected"
)

// Event is the envelope every realtime message uses.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// Encode marshals the envelope for publishing.
func (e Event) Encode() (string, error) {
	if e.Type == "" {
		return "", fmt.Errorf("event type is required")
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return string(data), nil
}
