package expiration

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/events"
	"github.com/chess-arena/chessarena/internal/models"
)

// EventHandler maintains the registry from the match event stream: a
// SideToActChanged arms or re-arms a clock, a MatchFinished or MatchCancelled
// disarms it. All other event types are ignored.
type EventHandler struct {
	registry *Registry
}

func NewEventHandler(registry *Registry) *EventHandler {
	return &EventHandler{registry: registry}
}

func (h *EventHandler) Handle(ctx context.Context, env *events.Envelope) error {
	switch env.EventType {
	case events.TypeSideToActChanged:
		var payload events.SideToActChangedPayload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			log.Error().Err(err).Str("event_id", env.EventID).Msg("dropping malformed SideToActChanged payload")
			return nil
		}
		matchID, err := uuid.Parse(payload.MatchID)
		if err != nil {
			log.Error().Err(err).Str("event_id", env.EventID).Msg("dropping SideToActChanged with invalid match id")
			return nil
		}
		h.registry.Upsert(matchID, models.MatchSide(payload.SideToAct), payload.ExpiresAt)
		log.Debug().
			Str("match_id", payload.MatchID).
			Int("side", payload.SideToAct).
			Time("expires_at", payload.ExpiresAt).
			Msg("armed clock")

	case events.TypeMatchFinished, events.TypeMatchCancelled:
		matchID, err := uuid.Parse(env.MatchID)
		if err != nil {
			log.Error().Err(err).Str("event_id", env.EventID).Msg("dropping event with invalid match id")
			return nil
		}
		h.registry.Clear(matchID)
		log.Debug().Str("match_id", env.MatchID).Str("event_type", env.EventType).Msg("disarmed clock")
	}
	return nil
}
