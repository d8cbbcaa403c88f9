package match

import (
	"time"

	"github.com/chess-arena/chessarena/internal/models"
)

// ExpiredSide reports whether the acting side's clock has run out as of now.
// Only the acting side's clock is live: its elapsed time is measured from the
// last move (or the match start before any move) against that side's own
// remaining seconds. Untimed matches never expire.
func ExpiredSide(m *models.Match, now time.Time) (models.MatchSide, bool) {
	if m.Status != models.MatchStatusInProgress || m.ActingSide == nil {
		return 0, false
	}

	side := *m.ActingSide
	remaining := m.RemainingTime(side)
	if remaining == nil {
		return 0, false
	}

	base := m.StartedAt
	if m.LastMoveAt != nil {
		base = m.LastMoveAt
	}
	if base == nil {
		return 0, false
	}

	if now.Sub(*base) >= time.Duration(*remaining)*time.Second {
		return side, true
	}
	return 0, false
}
