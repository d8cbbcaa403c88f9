package match

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chess-arena/chessarena/internal/models"
)

func timedMatch(acting models.MatchSide, whiteLeft, blackLeft int, startedAgo time.Duration, now time.Time) *models.Match {
	startedAt := now.Add(-startedAgo)
	return &models.Match{
		ID:                 uuid.New(),
		Status:             models.MatchStatusInProgress,
		StartedAt:          &startedAt,
		ActingSide:         &acting,
		WhiteTimeRemaining: &whiteLeft,
		BlackTimeRemaining: &blackLeft,
	}
}

func TestExpiredSideActingSideOutOfTime(t *testing.T) {
	now := time.Now()
	m := timedMatch(models.SideWhite, 300, 300, 301*time.Second, now)

	side, expired := ExpiredSide(m, now)
	if !expired {
		t.Fatal("expected acting side to be expired")
	}
	if side != models.SideWhite {
		t.Fatalf("expected white to expire, got %v", side)
	}
}

func TestExpiredSideExactBoundaryExpires(t *testing.T) {
	now := time.Now()
	m := timedMatch(models.SideBlack, 300, 300, 300*time.Second, now)

	if _, expired := ExpiredSide(m, now); !expired {
		t.Fatal("elapsed == remaining must count as expired")
	}
}

func TestExpiredSideWithinTime(t *testing.T) {
	now := time.Now()
	m := timedMatch(models.SideWhite, 300, 300, 299*time.Second, now)

	if _, expired := ExpiredSide(m, now); expired {
		t.Fatal("acting side still has time")
	}
}

func TestExpiredSideOnlyChecksActingSide(t *testing.T) {
	// Black's clock is drained but white is on the move.
	now := time.Now()
	m := timedMatch(models.SideWhite, 300, 0, 10*time.Second, now)

	if _, expired := ExpiredSide(m, now); expired {
		t.Fatal("a non-acting side's clock must not expire the match")
	}
}

func TestExpiredSideMeasuresFromLastMove(t *testing.T) {
	now := time.Now()
	m := timedMatch(models.SideBlack, 300, 60, time.Hour, now)
	lastMove := now.Add(-59 * time.Second)
	m.LastMoveAt = &lastMove

	if _, expired := ExpiredSide(m, now); expired {
		t.Fatal("elapsed time must be measured from the last move, not the start")
	}

	lastMove = now.Add(-61 * time.Second)
	m.LastMoveAt = &lastMove
	if _, expired := ExpiredSide(m, now); !expired {
		t.Fatal("black exceeded its remaining time since the last move")
	}
}

func TestExpiredSideUntimedMatchNeverExpires(t *testing.T) {
	now := time.Now()
	startedAt := now.Add(-24 * time.Hour)
	acting := models.SideWhite
	m := &models.Match{
		ID:         uuid.New(),
		Status:     models.MatchStatusInProgress,
		StartedAt:  &startedAt,
		ActingSide: &acting,
	}

	if _, expired := ExpiredSide(m, now); expired {
		t.Fatal("untimed match must never expire")
	}
}

func TestExpiredSideIgnoresNonRunningMatches(t *testing.T) {
	now := time.Now()
	m := timedMatch(models.SideWhite, 300, 300, time.Hour, now)
	m.Status = models.MatchStatusFinished

	if _, expired := ExpiredSide(m, now); expired {
		t.Fatal("finished match must not expire")
	}
}
