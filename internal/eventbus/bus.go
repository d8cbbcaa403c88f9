package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// StreamConfig holds the JetStream stream settings shared by every service
// attached to the match event stream.
type StreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	Replicas        int
	DuplicateWindow time.Duration
}

// DefaultStreamConfig returns the default match event stream configuration.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		URL:             nats.DefaultURL,
		StreamName:      "MATCH_EVENTS",
		SubjectPrefix:   "match.events",
		MaxReconnects:   -1, // infinite
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		Replicas:        1,
		DuplicateWindow: 2 * time.Hour,
	}
}

// Connect dials NATS with reconnect handling and opens a JetStream context.
func Connect(cfg StreamConfig) (*nats.Conn, jetstream.JetStream, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return nc, js, nil
}

// EnsureStream creates the match event stream or updates it when its settings
// drifted.
func EnsureStream(ctx context.Context, js jetstream.JetStream, cfg StreamConfig) error {
	sc := jetstream.StreamConfig{
		Name:        cfg.StreamName,
		Description: "Match domain event stream",
		Subjects:    []string{fmt.Sprintf("%s.>", cfg.SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      cfg.MaxAge,
		MaxMsgs:     -1,
		Storage:     jetstream.FileStorage,
		Replicas:    cfg.Replicas,
		Duplicates:  cfg.DuplicateWindow,
	}

	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		if _, err = js.CreateStream(ctx, sc); err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
		log.Info().Str("stream", cfg.StreamName).Msg("created JetStream stream")
		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("get stream info: %w", err)
	}
	if !streamConfigEqual(info.Config, sc) {
		if _, err = js.UpdateStream(ctx, sc); err != nil {
			return fmt.Errorf("update stream: %w", err)
		}
		log.Info().Str("stream", cfg.StreamName).Msg("updated JetStream stream")
	}
	return nil
}

func streamConfigEqual(a, b jetstream.StreamConfig) bool {
	return a.Name == b.Name &&
		a.MaxAge == b.MaxAge &&
		a.MaxMsgs == b.MaxMsgs &&
		a.Replicas == b.Replicas &&
		a.Duplicates == b.Duplicates
}
