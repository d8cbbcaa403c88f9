package outbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chess-arena/chessarena/internal/events"
)

// EventPublisher is the bus side of the relay.
type EventPublisher interface {
	Publish(ctx context.Context, env events.Envelope) error
}

// Config tunes the outbox relay.
type Config struct {
	PollInterval time.Duration
	BatchSize    int32
}

func DefaultConfig() Config {
	return Config{
		PollInterval: time.Second,
		BatchSize:    100,
	}
}

// Worker polls the outbox table and relays unsent events to the bus. Rows are
// claimed with FOR UPDATE SKIP LOCKED, so several relays can run without
// double-publishing; the broker dedup window covers the crash-between
// publish-and-commit case.
type Worker struct {
	pool      *pgxpool.Pool
	publisher EventPublisher
	config    Config
	logger    *slog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewWorker(pool *pgxpool.Pool, publisher EventPublisher, cfg Config, logger *slog.Logger) *Worker {
	return &Worker{
		pool:      pool,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker already running")
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("outbox worker started",
		slog.Duration("poll_interval", w.config.PollInterval),
		slog.Int("batch_size", int(w.config.BatchSize)))

	return nil
}

func (w *Worker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return fmt.Errorf("outbox worker not running")
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopChan)
	w.wg.Wait()

	w.logger.Info("outbox worker stopped")
	return nil
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Drain whatever accumulated before we started.
	w.processOutbox(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		w.logger.Error("failed to begin transaction", slog.String("error", err.Error()))
		return
	}
	defer tx.Rollback(ctx)

	repo := NewRepository(tx)

	pending, err := repo.FetchUnsent(ctx, w.config.BatchSize)
	if err != nil {
		w.logger.Error("failed to fetch unsent events", slog.String("error", err.Error()))
		return
	}
	if len(pending) == 0 {
		return
	}

	sent := make([]uuid.UUID, 0, len(pending))
	for _, e := range pending {
		env := events.Envelope{
			EventID:   e.ID.String(),
			EventType: e.EventType,
			MatchID:   e.MatchID.String(),
			Timestamp: e.CreatedAt,
			Payload:   e.Payload,
		}
		if err := w.publisher.Publish(ctx, env); err != nil {
			// Leave the row unsent; the next poll retries it.
			w.logger.Error("failed to publish event",
				slog.String("event_id", e.ID.String()),
				slog.String("event_type", e.EventType),
				slog.String("error", err.Error()))
			continue
		}
		sent = append(sent, e.ID)
	}

	if err := repo.MarkSent(ctx, sent); err != nil {
		w.logger.Error("failed to mark events sent", slog.String("error", err.Error()))
		return
	}

	if err := tx.Commit(ctx); err != nil {
		w.logger.Error("failed to commit outbox batch", slog.String("error", err.Error()))
		return
	}

	w.logger.Debug("relayed outbox batch",
		slog.Int("fetched", len(pending)),
		slog.Int("sent", len(sent)))
}
