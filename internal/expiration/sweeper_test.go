package expiration

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/chess-arena/chessarena/internal/models"
)

type report struct {
	matchID   uuid.UUID
	side      models.MatchSide
	expiredAt time.Time
}

type capturePublisher struct {
	reports chan report
	fail    atomic.Bool
	calls   atomic.Int64
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{reports: make(chan report, 16)}
}

func (p *capturePublisher) PublishTimedOut(ctx context.Context, matchID uuid.UUID, side models.MatchSide, expiredAt time.Time) error {
	p.calls.Add(1)
	if p.fail.Load() {
		return errors.New("bus unavailable")
	}
	p.reports <- report{matchID: matchID, side: side, expiredAt: expiredAt}
	return nil
}

func startSweeper(t *testing.T, registry *Registry, publisher TimeoutPublisher) (*clockwork.FakeClock, context.CancelFunc) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	sweeper := NewSweeper(registry, publisher, clock, DefaultSweeperConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go sweeper.Run(ctx)

	// Wait for the sweep ticker before touching the clock.
	clock.BlockUntil(1)
	return clock, cancel
}

func TestSweeperReportsExpiredClock(t *testing.T) {
	registry := NewRegistry()
	publisher := newCapturePublisher()
	clock, cancel := startSweeper(t, registry, publisher)
	defer cancel()

	matchID := uuid.New()
	expiresAt := clock.Now().Add(time.Second)
	registry.Upsert(matchID, models.SideBlack, expiresAt)

	clock.Advance(time.Second)

	select {
	case got := <-publisher.reports:
		if got.matchID != matchID || got.side != models.SideBlack {
			t.Fatalf("unexpected report: %+v", got)
		}
		if !got.expiredAt.Equal(expiresAt) {
			t.Fatalf("report must carry the expiry instant, got %v", got.expiredAt)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected a TimedOut report")
	}

	if registry.Len() != 0 {
		t.Fatalf("reported entry must be removed, got %d entries", registry.Len())
	}
}

func TestSweeperLeavesFutureEntriesAlone(t *testing.T) {
	registry := NewRegistry()
	publisher := newCapturePublisher()
	clock, cancel := startSweeper(t, registry, publisher)
	defer cancel()

	registry.Upsert(uuid.New(), models.SideWhite, clock.Now().Add(time.Hour))

	clock.Advance(time.Second)

	select {
	case got := <-publisher.reports:
		t.Fatalf("unexpected report: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}

	if registry.Len() != 1 {
		t.Fatalf("future entry must stay armed, got %d entries", registry.Len())
	}
}

func TestSweeperDropsEntryAfterFailedReports(t *testing.T) {
	registry := NewRegistry()
	publisher := newCapturePublisher()
	publisher.fail.Store(true)
	clock, cancel := startSweeper(t, registry, publisher)
	defer cancel()

	registry.Upsert(uuid.New(), models.SideWhite, clock.Now())

	clock.Advance(time.Second)

	// The entry is retried a bounded number of times and then dropped for
	// good; it must not be retried on later ticks.
	deadline := time.After(2 * time.Second)
	for registry.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("entry must be dropped after exhausting attempts")
		case <-time.After(10 * time.Millisecond):
		}
	}

	calls := publisher.calls.Load()
	if want := int64(DefaultSweeperConfig().MaxAttempts); calls != want {
		t.Fatalf("expected %d publish attempts, got %d", want, calls)
	}

	clock.Advance(time.Second)
	time.Sleep(50 * time.Millisecond)
	if got := publisher.calls.Load(); got != calls {
		t.Fatalf("dropped entry must not be retried, got %d extra attempts", got-calls)
	}
}
