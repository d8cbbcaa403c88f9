package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chess-arena/chessarena/internal/events"
)

// Repository writes and drains the match_outbox table.
type Repository struct {
	tx pgx.Tx
}

// NewRepository binds a repository to one transaction; outbox inserts only
// ever happen inside the transaction of the state change they belong to.
func NewRepository(tx pgx.Tx) *Repository {
	return &Repository{tx: tx}
}

// Insert records one outbound event.
func (r *Repository) Insert(ctx context.Context, evt events.Outbound) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", evt.EventType, err)
	}

	_, err = r.tx.Exec(ctx, `
		INSERT INTO match_outbox (id, match_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		uuid.New(), evt.MatchID, evt.EventType, payload,
	)
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// FetchUnsent claims up to limit unsent events, skipping rows another relay
// already holds.
func (r *Repository) FetchUnsent(ctx context.Context, limit int32) ([]Event, error) {
	rows, err := r.tx.Query(ctx, `
		SELECT id, match_id, event_type, payload, created_at
		FROM match_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch unsent events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.MatchID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkSent stamps the given events as relayed.
func (r *Repository) MarkSent(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.tx.Exec(ctx, `
		UPDATE match_outbox SET sent_at = now() WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("mark events sent: %w", err)
	}
	return nil
}
