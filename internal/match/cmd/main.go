package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/config"
	"github.com/chess-arena/chessarena/internal/dbconfig"
	"github.com/chess-arena/chessarena/internal/eventbus"
	"github.com/chess-arena/chessarena/internal/match"
	"github.com/chess-arena/chessarena/internal/outbox"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(getEnv("CONFIG_FILE", "config.yaml"), "8080")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	dbCfg := dbconfig.NewConfigFromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create database pool")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	log.Info().
		Str("database", dbCfg.Database).
		Str("nats_url", cfg.NATSURL).
		Str("port", cfg.Port).
		Msg("starting match service")

	// Event publishing: state changes land in the outbox table, the relay
	// worker moves them onto the stream.
	streamCfg := eventbus.DefaultStreamConfig()
	streamCfg.URL = cfg.NATSURL
	publisher, err := eventbus.NewPublisher(streamCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}
	defer publisher.Close()

	relay := outbox.NewWorker(pool, publisher, outbox.DefaultConfig(), slog.Default())
	if err := relay.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start outbox worker")
	}
	defer relay.Stop()

	repo := match.NewPostgresRepository(pool)
	app := match.NewApp(repo, clockwork.NewRealClock())

	// TimedOut notifications from the expiration service.
	consumerCfg := eventbus.DefaultConsumerConfig("match-service", "match.events.TimedOut")
	consumerCfg.URL = cfg.NATSURL
	consumerCfg.Description = "Match service TimedOut consumer"
	timedOutConsumer, err := eventbus.NewConsumer(consumerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create TimedOut consumer")
	}
	defer timedOutConsumer.Close()

	go func() {
		if err := timedOutConsumer.Run(ctx, match.NewTimedOutHandler(app).Handle); err != nil {
			log.Error().Err(err).Msg("TimedOut consumer failed")
		}
	}()

	server := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	})
	server.Use(recover.New())
	server.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	match.NewHTTPAPI(app).Register(server)

	go func() {
		if err := server.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	if err := server.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()

	log.Info().Msg("match service shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
