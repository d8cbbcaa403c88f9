package match

import (
	"time"

	"github.com/google/uuid"

	"github.com/chess-arena/chessarena/internal/models"
)

// CreateMatchRequest carries the options of the create command. Range rules
// live in the validate tags; the cross-field rules (AI level iff vs-bot,
// increment requires time limit) are checked in the app.
type CreateMatchRequest struct {
	MatchID          uuid.UUID `json:"matchId" validate:"required"`
	VsBot            bool      `json:"vsBot"`
	AILevel          *int      `json:"aiLevel" validate:"omitempty,min=1,max=25"`
	TimeLimit        *int      `json:"timeLimit" validate:"omitempty,min=180,max=7200"`
	ExtraTimePerMove *int      `json:"extraTimePerMove" validate:"omitempty,min=5,max=300"`
	FirstToActSide   *int      `json:"firstToActSide" validate:"omitempty,min=0,max=1"`
}

// MatchInfo is the read projection returned by the get-current query.
type MatchInfo struct {
	MatchID            uuid.UUID  `json:"matchId"`
	CreatedAt          time.Time  `json:"createdAt"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	EndedAt            *time.Time `json:"endedAt,omitempty"`
	LastMoveAt         *time.Time `json:"lastMoveAt,omitempty"`
	TimeLimit          *int       `json:"timeLimit,omitempty"`
	ExtraTimePerMove   *int       `json:"extraTimePerMove,omitempty"`
	WhiteSidePlayer    *string    `json:"whiteSidePlayer,omitempty"`
	ActingSide         *int       `json:"actingSide,omitempty"`
	Status             string     `json:"status"`
	Creator            string     `json:"creator"`
	Acceptor           *string    `json:"acceptor,omitempty"`
	AILevel            *int       `json:"aiLevel,omitempty"`
	Fen                *string    `json:"fen,omitempty"`
	History            []string   `json:"history"`
	Winner             *string    `json:"winner,omitempty"`
	WinBy              *string    `json:"winBy,omitempty"`
	DrawBy             *string    `json:"drawBy,omitempty"`
	DrawRequestedSide  *int       `json:"drawRequestedSide,omitempty"`
	WhiteTimeRemaining *int       `json:"whiteTimeRemaining,omitempty"`
	BlackTimeRemaining *int       `json:"blackTimeRemaining,omitempty"`
}

func toMatchInfo(m *models.Match) *MatchInfo {
	info := &MatchInfo{
		MatchID:            m.ID,
		CreatedAt:          m.CreatedAt,
		StartedAt:          m.StartedAt,
		EndedAt:            m.EndedAt,
		LastMoveAt:         m.LastMoveAt,
		TimeLimit:          m.TimeLimit,
		ExtraTimePerMove:   m.ExtraTimePerMove,
		WhiteSidePlayer:    m.WhiteSidePlayer,
		Status:             string(m.Status),
		Creator:            m.Creator,
		Acceptor:           m.Acceptor,
		AILevel:            m.AILevel,
		Fen:                m.Board,
		History:            m.History,
		Winner:             m.Winner,
		WhiteTimeRemaining: m.WhiteTimeRemaining,
		BlackTimeRemaining: m.BlackTimeRemaining,
	}
	if m.ActingSide != nil {
		v := int(*m.ActingSide)
		info.ActingSide = &v
	}
	if m.DrawRequestedSide != nil {
		v := int(*m.DrawRequestedSide)
		info.DrawRequestedSide = &v
	}
	if m.WinBy != nil {
		s := string(*m.WinBy)
		info.WinBy = &s
	}
	if m.DrawBy != nil {
		s := string(*m.DrawBy)
		info.DrawBy = &s
	}
	return info
}
