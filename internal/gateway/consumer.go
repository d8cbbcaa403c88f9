package gateway

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/events"
)

// EventFanout bridges the match event stream to the connection manager:
// every event on a match is forwarded verbatim to that match's subscribers.
type EventFanout struct {
	connectionManager *ConnectionManager
}

func NewEventFanout(cm *ConnectionManager) *EventFanout {
	return &EventFanout{connectionManager: cm}
}

func (f *EventFanout) Handle(ctx context.Context, env *events.Envelope) error {
	matchID, err := uuid.Parse(env.MatchID)
	if err != nil {
		log.Error().Err(err).Str("event_id", env.EventID).Msg("dropping event with invalid match id")
		return nil
	}

	f.connectionManager.BroadcastToMatch(matchID, env)
	return nil
}
