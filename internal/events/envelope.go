package events

import (
	"encoding/json"
	"time"
)

// Envelope is the wire frame every match event travels in, published on
// match.events.<eventType>. EventID is the broker dedup key.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	MatchID   string          `json:"matchId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}
