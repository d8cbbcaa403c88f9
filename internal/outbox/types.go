package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one row of the match_outbox table: a domain event captured in the
// same transaction as the state change that produced it, awaiting relay to
// the message bus.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	MatchID   uuid.UUID       `json:"match_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}
