package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Control message types accepted on the gateway's message channel.
const (
	MessageSkipWaiting      = "SKIP_WAITING"
	MessageCacheCalculation = "CACHE_CALCULATION"
	MessageSync             = "SYNC"
)

// ControlMessage is a structured message from a trusted foreground client.
// SKIP_WAITING forces immediate activation of a staged generation;
// CACHE_CALCULATION persists Key/Value into the calculation-results
// namespace; SYNC triggers an immediate replay pass of the pending queue.
type ControlMessage struct {
	Type  string          `json:"type"`
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Validate checks the message carries what its type requires.
func (m *ControlMessage) Validate() error {
	switch m.Type {
	case MessageSkipWaiting, MessageSync:
		return nil
	case MessageCacheCalculation:
		if m.Key == "" {
			return fmt.Errorf("CACHE_CALCULATION requires a key")
		}
		if len(m.Value) == 0 {
			return fmt.Errorf("CACHE_CALCULATION requires a value")
		}
		return nil
	default:
		return fmt.Errorf("unknown control message type %q", m.Type)
	}
}

// PushPayload is a trusted push message to display to connected clients.
type PushPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Validate checks the payload carries the required display fields.
func (p *PushPayload) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("push payload requires a title")
	}
	if p.Body == "" {
		return fmt.Errorf("push payload requires a body")
	}
	return nil
}

// Notification is the event fanned out to websocket clients for a push.
type Notification struct {
	Type      string      `json:"type"`
	Payload   PushPayload `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}
