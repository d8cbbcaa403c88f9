package expiration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/models"
)

// TimeoutPublisher reports a flag fall to the match service.
type TimeoutPublisher interface {
	PublishTimedOut(ctx context.Context, matchID uuid.UUID, side models.MatchSide, expiredAt time.Time) error
}

// SweeperConfig tunes the sweep loop.
type SweeperConfig struct {
	Interval    time.Duration
	MaxAttempts int
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:    time.Second,
		MaxAttempts: 3,
	}
}

// Sweeper periodically drains expired clocks from the registry and reports
// each one as a TimedOut notification. Reporting is best-effort: after the
// configured attempts the entry is dropped, never re-armed, and the error is
// logged. The match service discards reports for matches that are no longer
// running, so a duplicate is harmless and a lost one only delays settlement
// until a client touches the match.
type Sweeper struct {
	registry  *Registry
	publisher TimeoutPublisher
	clock     clockwork.Clock
	config    SweeperConfig
}

func NewSweeper(registry *Registry, publisher TimeoutPublisher, clock clockwork.Clock, cfg SweeperConfig) *Sweeper {
	return &Sweeper{
		registry:  registry,
		publisher: publisher,
		clock:     clock,
		config:    cfg,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().Dur("interval", s.config.Interval).Msg("starting expiration sweeper")

	ticker := s.clock.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("expiration sweeper shutting down")
			return
		case <-ticker.Chan():
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	expired := s.registry.Sweep(s.clock.Now())
	for _, e := range expired {
		s.report(ctx, e)
		s.registry.Remove(e)
	}
}

func (s *Sweeper) report(ctx context.Context, e Entry) {
	var err error
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		err = s.publisher.PublishTimedOut(ctx, e.MatchID, e.Side, e.ExpiresAt)
		if err == nil {
			log.Debug().
				Str("match_id", e.MatchID.String()).
				Str("side", e.Side.String()).
				Time("expired_at", e.ExpiresAt).
				Msg("reported clock expiration")
			return
		}
	}
	log.Error().
		Err(err).
		Str("match_id", e.MatchID.String()).
		Int("attempts", s.config.MaxAttempts).
		Msg("giving up on expiration report")
}
