package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/config"
	"github.com/chess-arena/chessarena/internal/eventbus"
	"github.com/chess-arena/chessarena/internal/expiration"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(getEnv("CONFIG_FILE", "config.yaml"), "8082")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	log.Info().
		Str("nats_url", cfg.NATSURL).
		Str("port", cfg.Port).
		Msg("starting expiration service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := expiration.NewRegistry()

	// Registry maintenance from the match event stream.
	consumerCfg := eventbus.DefaultConsumerConfig("expiration-service", "match.events.>")
	consumerCfg.URL = cfg.NATSURL
	consumerCfg.Description = "Expiration service registry consumer"
	consumer, err := eventbus.NewConsumer(consumerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event consumer")
	}
	defer consumer.Close()

	go func() {
		if err := consumer.Run(ctx, expiration.NewEventHandler(registry).Handle); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	// TimedOut reports go straight onto the stream.
	streamCfg := eventbus.DefaultStreamConfig()
	streamCfg.URL = cfg.NATSURL
	publisher, err := eventbus.NewPublisher(streamCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	defer publisher.Close()

	sweeper := expiration.NewSweeper(registry, publisher, clockwork.NewRealClock(), expiration.DefaultSweeperConfig())
	go sweeper.Run(ctx)

	// Health check server.
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health check server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health check server shutdown failed")
	}
	cancel()

	log.Info().Msg("expiration service shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
