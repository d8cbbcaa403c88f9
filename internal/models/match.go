package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchSide identifies one side of the board. The wire encoding is the
// integer value (0 = white, 1 = black).
type MatchSide int

const (
	SideWhite MatchSide = 0
	SideBlack MatchSide = 1
)

// Opposite returns the other side.
func (s MatchSide) Opposite() MatchSide {
	if s == SideWhite {
		return SideBlack
	}
	return SideWhite
}

func (s MatchSide) String() string {
	if s == SideWhite {
		return "white"
	}
	return "black"
}

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusCreated    MatchStatus = "CREATED"
	MatchStatusInProgress MatchStatus = "IN_PROGRESS"
	MatchStatusFinished   MatchStatus = "FINISHED"
)

// WinDescriptor explains how the winner won.
type WinDescriptor string

const (
	WinByResignation WinDescriptor = "RESIGNATION"
	WinByOnTime      WinDescriptor = "ON_TIME"
)

// DrawDescriptor explains how the match was drawn.
type DrawDescriptor string

const (
	DrawByAgreement            DrawDescriptor = "AGREEMENT"
	DrawByStalemate            DrawDescriptor = "STALEMATE"
	DrawByInsufficientMaterial DrawDescriptor = "INSUFFICIENT_MATERIAL"
	DrawByThreefoldRepetition  DrawDescriptor = "THREEFOLD_REPETITION"
	DrawByFiftyMoveRule        DrawDescriptor = "FIFTY_MOVE_RULE"
)

// StartingBoard is the standard chess starting position in FEN.
const StartingBoard = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Match is the canonical persisted state of one match. Nullable columns map
// to pointer fields. TimeLimit, ExtraTimePerMove and the two remaining-time
// fields are in seconds; an untimed match leaves all four nil.
type Match struct {
	ID        uuid.UUID
	Creator   string
	Acceptor  *string
	CreatedAt time.Time
	StartedAt *time.Time
	EndedAt   *time.Time
	// LastMoveAt is the instant of the most recent move, nil before the
	// first move. The acting side's elapsed time is measured from
	// LastMoveAt when set, otherwise from StartedAt.
	LastMoveAt       *time.Time
	TimeLimit        *int
	ExtraTimePerMove *int
	// FirstToActChoice is the creator's color preference: 0 means the
	// creator plays white, 1 means the acceptor does. Nil picks at random
	// when the match is accepted.
	FirstToActChoice  *int
	WhiteSidePlayer   *string
	ActingSide        *MatchSide
	Status            MatchStatus
	AILevel           *int
	Board             *string
	History           []string
	Winner            *string
	WinBy             *WinDescriptor
	DrawBy            *DrawDescriptor
	DrawRequestedSide *MatchSide
	WhiteTimeRemaining *int
	BlackTimeRemaining *int
	// Version guards concurrent updates; every persisted write bumps it.
	Version int64
}

// IsParticipant reports whether user is the creator or the acceptor.
func (m *Match) IsParticipant(user string) bool {
	if user == m.Creator {
		return true
	}
	return m.Acceptor != nil && user == *m.Acceptor
}

// PlayerOnSide returns the participant playing the given side, or nil if
// sides have not been assigned yet.
func (m *Match) PlayerOnSide(side MatchSide) *string {
	if m.WhiteSidePlayer == nil {
		return nil
	}
	if side == SideWhite {
		return m.WhiteSidePlayer
	}
	if *m.WhiteSidePlayer == m.Creator {
		return m.Acceptor
	}
	creator := m.Creator
	return &creator
}

// SideOfPlayer returns the side the given participant plays, or nil if the
// user is not a participant or sides are not assigned.
func (m *Match) SideOfPlayer(user string) *MatchSide {
	if m.WhiteSidePlayer == nil || !m.IsParticipant(user) {
		return nil
	}
	side := SideBlack
	if *m.WhiteSidePlayer == user {
		side = SideWhite
	}
	return &side
}

// RemainingTime returns the remaining seconds for the given side, nil for an
// untimed match.
func (m *Match) RemainingTime(side MatchSide) *int {
	if side == SideWhite {
		return m.WhiteTimeRemaining
	}
	return m.BlackTimeRemaining
}
