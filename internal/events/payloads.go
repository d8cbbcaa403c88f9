package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/chess-arena/chessarena/internal/models"
)

// Event type names as they appear on the wire (subject suffix and envelope
// eventType field).
const (
	TypeMatchCreated     = "MatchCreated"
	TypeMatchStarted     = "MatchStarted"
	TypeMatchCancelled   = "MatchCancelled"
	TypeDrawRequested    = "DrawRequested"
	TypeDrawRejected     = "DrawRejected"
	TypeMatchFinished    = "MatchFinished"
	TypeSideToActChanged = "SideToActChanged"
	TypeTimedOut         = "TimedOut"
)

// MatchCreatedPayload is the payload for a MatchCreated event.
type MatchCreatedPayload struct {
	MatchID          string    `json:"match_id"`
	CreatedAt        time.Time `json:"created_at"`
	Creator          string    `json:"creator"`
	VsBot            bool      `json:"vs_bot"`
	AILevel          *int      `json:"ai_level,omitempty"`
	TimeLimit        *int      `json:"time_limit,omitempty"`
	ExtraTimePerMove *int      `json:"extra_time_per_move,omitempty"`
	FirstToActSide   *int      `json:"first_to_act_side,omitempty"`
}

// MatchStartedPayload is the payload for a MatchStarted event.
type MatchStartedPayload struct {
	MatchID         string    `json:"match_id"`
	StartedAt       time.Time `json:"started_at"`
	Acceptor        string    `json:"acceptor"`
	WhiteSidePlayer string    `json:"white_side_player"`
}

// MatchCancelledPayload is the payload for a MatchCancelled event.
type MatchCancelledPayload struct {
	MatchID string `json:"match_id"`
}

// DrawRequestedPayload is the payload for a DrawRequested event.
type DrawRequestedPayload struct {
	MatchID       string `json:"match_id"`
	RequestedSide int    `json:"requested_side"`
}

// DrawRejectedPayload is the payload for a DrawRejected event.
type DrawRejectedPayload struct {
	MatchID string `json:"match_id"`
}

// MatchFinishedPayload is the payload for a MatchFinished event. Exactly one
// of Winner+WinBy or DrawBy is set.
type MatchFinishedPayload struct {
	MatchID string    `json:"match_id"`
	EndedAt time.Time `json:"ended_at"`
	Winner  *string   `json:"winner,omitempty"`
	WinBy   *string   `json:"win_by,omitempty"`
	DrawBy  *string   `json:"draw_by,omitempty"`
}

// SideToActChangedPayload announces that a side's clock is now running and
// when it runs out. The expiration service upserts its registry entry from
// this event.
type SideToActChangedPayload struct {
	MatchID   string    `json:"match_id"`
	SideToAct int       `json:"side_to_act"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TimedOutPayload notifies the match service that a side's clock ran out.
type TimedOutPayload struct {
	MatchID      string `json:"match_id"`
	TimedOutSide int    `json:"timed_out_side"`
}

// Outbound is a domain event pending emission. Repository writes accept
// Outbound values so the record mutation and its events commit as one unit.
type Outbound struct {
	MatchID   uuid.UUID
	EventType string
	Payload   any
}

// NewMatchCreated builds the MatchCreated event for a freshly created match.
func NewMatchCreated(m *models.Match) Outbound {
	return Outbound{
		MatchID:   m.ID,
		EventType: TypeMatchCreated,
		Payload: MatchCreatedPayload{
			MatchID:          m.ID.String(),
			CreatedAt:        m.CreatedAt,
			Creator:          m.Creator,
			VsBot:            m.AILevel != nil,
			AILevel:          m.AILevel,
			TimeLimit:        m.TimeLimit,
			ExtraTimePerMove: m.ExtraTimePerMove,
			FirstToActSide:   m.FirstToActChoice,
		},
	}
}

// NewMatchStarted builds the MatchStarted event for an accepted match.
func NewMatchStarted(m *models.Match) Outbound {
	return Outbound{
		MatchID:   m.ID,
		EventType: TypeMatchStarted,
		Payload: MatchStartedPayload{
			MatchID:         m.ID.String(),
			StartedAt:       *m.StartedAt,
			Acceptor:        *m.Acceptor,
			WhiteSidePlayer: *m.WhiteSidePlayer,
		},
	}
}

func NewMatchCancelled(id uuid.UUID) Outbound {
	return Outbound{
		MatchID:   id,
		EventType: TypeMatchCancelled,
		Payload:   MatchCancelledPayload{MatchID: id.String()},
	}
}

func NewDrawRequested(id uuid.UUID, side models.MatchSide) Outbound {
	return Outbound{
		MatchID:   id,
		EventType: TypeDrawRequested,
		Payload:   DrawRequestedPayload{MatchID: id.String(), RequestedSide: int(side)},
	}
}

func NewDrawRejected(id uuid.UUID) Outbound {
	return Outbound{
		MatchID:   id,
		EventType: TypeDrawRejected,
		Payload:   DrawRejectedPayload{MatchID: id.String()},
	}
}

// NewMatchFinished builds the MatchFinished event from a finished match.
func NewMatchFinished(m *models.Match) Outbound {
	p := MatchFinishedPayload{
		MatchID: m.ID.String(),
		EndedAt: *m.EndedAt,
		Winner:  m.Winner,
	}
	if m.WinBy != nil {
		s := string(*m.WinBy)
		p.WinBy = &s
	}
	if m.DrawBy != nil {
		s := string(*m.DrawBy)
		p.DrawBy = &s
	}
	return Outbound{MatchID: m.ID, EventType: TypeMatchFinished, Payload: p}
}

// NewSideToActChanged builds the clock-arming event for the side now on the
// clock.
func NewSideToActChanged(id uuid.UUID, side models.MatchSide, expiresAt time.Time) Outbound {
	return Outbound{
		MatchID:   id,
		EventType: TypeSideToActChanged,
		Payload: SideToActChangedPayload{
			MatchID:   id.String(),
			SideToAct: int(side),
			ExpiresAt: expiresAt,
		},
	}
}

func NewTimedOut(id uuid.UUID, side models.MatchSide) Outbound {
	return Outbound{
		MatchID:   id,
		EventType: TypeTimedOut,
		Payload:   TimedOutPayload{MatchID: id.String(), TimedOutSide: int(side)},
	}
}
