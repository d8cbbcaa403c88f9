package match

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/events"
	"github.com/chess-arena/chessarena/internal/models"
)

// TimedOutHandler feeds TimedOut notifications into the app. A version
// conflict is returned to the bus layer so the message is redelivered and the
// check runs again against the fresher state.
type TimedOutHandler struct {
	app *App
}

func NewTimedOutHandler(app *App) *TimedOutHandler {
	return &TimedOutHandler{app: app}
}

func (h *TimedOutHandler) Handle(ctx context.Context, env *events.Envelope) error {
	if env.EventType != events.TypeTimedOut {
		return nil
	}

	var payload events.TimedOutPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		log.Error().Err(err).Str("event_id", env.EventID).Msg("dropping malformed TimedOut payload")
		return nil
	}
	matchID, err := uuid.Parse(payload.MatchID)
	if err != nil {
		log.Error().Err(err).Str("event_id", env.EventID).Msg("dropping TimedOut with invalid match id")
		return nil
	}
	side := models.MatchSide(payload.TimedOutSide)
	if side != models.SideWhite && side != models.SideBlack {
		log.Error().Int("side", payload.TimedOutSide).Str("event_id", env.EventID).Msg("dropping TimedOut with invalid side")
		return nil
	}

	if err := h.app.ApplyTimeout(ctx, matchID, side); err != nil {
		return fmt.Errorf("apply timeout for match %s: %w", matchID, err)
	}
	return nil
}
