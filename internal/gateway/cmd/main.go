package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/config"
	"github.com/chess-arena/chessarena/internal/eventbus"
	"github.com/chess-arena/chessarena/internal/gateway"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(getEnv("CONFIG_FILE", "config.yaml"), "8081")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	log.Info().
		Str("nats_url", cfg.NATSURL).
		Str("port", cfg.Port).
		Msg("starting match gateway")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	connectionManager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	go connectionManager.Start(ctx)

	consumerCfg := eventbus.DefaultConsumerConfig("match-gateway", "match.events.>")
	consumerCfg.URL = cfg.NATSURL
	consumerCfg.Description = "Gateway fan-out consumer"
	consumer, err := eventbus.NewConsumer(consumerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event consumer")
	}
	defer consumer.Close()

	go func() {
		if err := consumer.Run(ctx, gateway.NewEventFanout(connectionManager).Handle); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	mux := http.NewServeMux()
	gateway.NewWebSocketHandler(connectionManager).RegisterRoutes(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Handler(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()

	log.Info().Msg("match gateway shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
