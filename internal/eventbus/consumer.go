package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/events"
)

// ConsumerConfig holds the settings of one durable JetStream consumer.
type ConsumerConfig struct {
	URL           string
	StreamName    string
	ConsumerName  string
	Description   string
	SubjectFilter string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultConsumerConfig returns sane consumer defaults; callers set the
// consumer name and subject filter.
func DefaultConsumerConfig(name, filter string) ConsumerConfig {
	return ConsumerConfig{
		URL:           nats.DefaultURL,
		StreamName:    "MATCH_EVENTS",
		ConsumerName:  name,
		SubjectFilter: filter,
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 100,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// Handler processes one decoded event envelope. A non-nil error NAKs the
// message so the broker redelivers it.
type Handler func(ctx context.Context, env *events.Envelope) error

// Consumer is a durable JetStream consumer feeding envelopes to a Handler.
type Consumer struct {
	nc       *nats.Conn
	js       jetstream.JetStream
	consumer jetstream.Consumer
	config   ConsumerConfig
}

// NewConsumer connects to NATS and creates or binds the durable consumer.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	nc, js, err := Connect(StreamConfig{
		URL:           cfg.URL,
		MaxReconnects: cfg.MaxReconnects,
		ReconnectWait: cfg.ReconnectWait,
	})
	if err != nil {
		return nil, err
	}

	c := &Consumer{nc: nc, js: js, config: cfg}
	if err := c.ensureConsumer(context.Background()); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return c, nil
}

func (c *Consumer) ensureConsumer(ctx context.Context) error {
	stream, err := c.js.Stream(ctx, c.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          c.config.ConsumerName,
		Durable:       c.config.ConsumerName,
		Description:   c.config.Description,
		FilterSubject: c.config.SubjectFilter,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    c.config.MaxDeliver,
		AckWait:       c.config.AckWait,
		MaxAckPending: c.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}

	consumer, err := stream.Consumer(ctx, c.config.ConsumerName)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
		log.Info().
			Str("consumer", c.config.ConsumerName).
			Str("stream", c.config.StreamName).
			Msg("created JetStream consumer")
	} else {
		log.Info().
			Str("consumer", c.config.ConsumerName).
			Str("stream", c.config.StreamName).
			Msg("using existing JetStream consumer")
	}

	c.consumer = consumer
	return nil
}

// Run consumes messages until ctx is cancelled, acking on handler success and
// naking on failure.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	log.Info().
		Str("consumer", c.config.ConsumerName).
		Str("filter", c.config.SubjectFilter).
		Msg("starting event consumer")

	messageCh := make(chan jetstream.Msg, 100)

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case messageCh <- msg:
		case <-ctx.Done():
			msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	defer consumeCtx.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("consumer", c.config.ConsumerName).Msg("event consumer shutting down")
			return nil
		case msg := <-messageCh:
			var env events.Envelope
			if err := json.Unmarshal(msg.Data(), &env); err != nil {
				// Malformed frame; redelivery will not help.
				log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping undecodable event")
				if ackErr := msg.Ack(); ackErr != nil {
					log.Error().Err(ackErr).Msg("failed to ACK message")
				}
				continue
			}

			if err := handle(ctx, &env); err != nil {
				log.Error().
					Err(err).
					Str("event_type", env.EventType).
					Str("match_id", env.MatchID).
					Msg("failed to process event")
				if nakErr := msg.Nak(); nakErr != nil {
					log.Error().Err(nakErr).Msg("failed to NAK message")
				}
				continue
			}

			if ackErr := msg.Ack(); ackErr != nil {
				log.Error().Err(ackErr).Msg("failed to ACK message")
			}
		}
	}
}

// Close tears down the NATS connection.
func (c *Consumer) Close() error {
	if c.nc != nil {
		c.nc.Close()
	}
	return nil
}
