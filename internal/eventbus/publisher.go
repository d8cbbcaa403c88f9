package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/events"
	"github.com/chess-arena/chessarena/internal/models"
)

// Publisher publishes match event envelopes to the JetStream event stream.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	config StreamConfig
}

// NewPublisher connects to NATS and makes sure the stream exists.
func NewPublisher(cfg StreamConfig) (*Publisher, error) {
	nc, js, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	p := &Publisher{nc: nc, js: js, config: cfg}

	if err := EnsureStream(context.Background(), js, cfg); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream: %w", err)
	}

	return p, nil
}

// Publish sends one envelope on match.events.<eventType>, using the envelope
// event id as the broker dedup key.
func (p *Publisher) Publish(ctx context.Context, env events.Envelope) error {
	subject := fmt.Sprintf("%s.%s", p.config.SubjectPrefix, env.EventType)

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ack, err := p.js.PublishMsg(ctx, &nats.Msg{
		Subject: subject,
		Data:    data,
		Header: nats.Header{
			"Event-Type": []string{env.EventType},
			"Match-ID":   []string{env.MatchID},
			"Event-ID":   []string{env.EventID},
		},
	},
		jetstream.WithMsgID(env.EventID),
		jetstream.WithExpectStream(p.config.StreamName),
	)
	if err != nil {
		return fmt.Errorf("publish to JetStream: %w", err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", env.EventID).
		Uint64("sequence", ack.Sequence).
		Msg("published to JetStream")

	return nil
}

// PublishTimedOut emits a TimedOut notification for an expired clock. Used by
// the expiration sweep loop, which has no outbox of its own; expiredAt is the
// instant the flag fell by the sweeper's clock and stamps the envelope.
func (p *Publisher) PublishTimedOut(ctx context.Context, matchID uuid.UUID, side models.MatchSide, expiredAt time.Time) error {
	payload, err := json.Marshal(events.TimedOutPayload{
		MatchID:      matchID.String(),
		TimedOutSide: int(side),
	})
	if err != nil {
		return fmt.Errorf("marshal TimedOut payload: %w", err)
	}

	return p.Publish(ctx, events.Envelope{
		EventID:   uuid.New().String(),
		EventType: events.TypeTimedOut,
		MatchID:   matchID.String(),
		Timestamp: expiredAt.UTC(),
		Payload:   payload,
	})
}

// Close tears down the NATS connection.
func (p *Publisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
