package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chess-arena/chessarena/internal/events"
	"github.com/chess-arena/chessarena/internal/models"
	"github.com/chess-arena/chessarena/internal/outbox"
)

// MatchRepository persists matches. Write methods take the domain events the
// mutation produced; the record change and its events commit atomically or
// not at all.
type MatchRepository interface {
	// GetMatch returns the match or (nil, nil) when no row exists.
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	CreateMatch(ctx context.Context, m *models.Match, evts ...events.Outbound) error
	// UpdateMatch writes the match conditioned on m.Version matching the
	// stored row; returns ErrVersionConflict when a concurrent writer won.
	UpdateMatch(ctx context.Context, m *models.Match, evts ...events.Outbound) error
	DeleteMatch(ctx context.Context, id uuid.UUID, evts ...events.Outbound) error
}

// PostgresRepository implements MatchRepository on a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const matchColumns = `
	id, creator, acceptor, created_at, started_at, ended_at, last_move_at,
	time_limit, extra_time_per_move, first_to_act_choice, white_side_player,
	acting_side, status, ai_level, board, history, winner, win_by, draw_by,
	draw_requested_side, white_time_remaining, black_time_remaining, version`

func (r *PostgresRepository) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get match %s: %w", id, err)
	}
	return m, nil
}

func (r *PostgresRepository) CreateMatch(ctx context.Context, m *models.Match, evts ...events.Outbound) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		m.Version = 1
		_, err := tx.Exec(ctx, `
			INSERT INTO matches (`+matchColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			        $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)`,
			matchArgs(m)...,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return &ConflictError{Msg: fmt.Sprintf("match with id %s already exists", m.ID)}
			}
			return fmt.Errorf("insert match %s: %w", m.ID, err)
		}
		return insertEvents(ctx, tx, evts)
	})
}

func (r *PostgresRepository) UpdateMatch(ctx context.Context, m *models.Match, evts ...events.Outbound) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE matches SET
				acceptor = $2, started_at = $3, ended_at = $4, last_move_at = $5,
				white_side_player = $6, acting_side = $7, status = $8,
				board = $9, history = $10, winner = $11, win_by = $12,
				draw_by = $13, draw_requested_side = $14,
				white_time_remaining = $15, black_time_remaining = $16,
				version = version + 1
			WHERE id = $1 AND version = $17`,
			m.ID, m.Acceptor, m.StartedAt, m.EndedAt, m.LastMoveAt,
			m.WhiteSidePlayer, sideVal(m.ActingSide), string(m.Status),
			m.Board, m.History, m.Winner, winVal(m.WinBy),
			drawVal(m.DrawBy), sideVal(m.DrawRequestedSide),
			m.WhiteTimeRemaining, m.BlackTimeRemaining,
			m.Version,
		)
		if err != nil {
			return fmt.Errorf("update match %s: %w", m.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionConflict
		}
		m.Version++
		return insertEvents(ctx, tx, evts)
	})
}

func (r *PostgresRepository) DeleteMatch(ctx context.Context, id uuid.UUID, evts ...events.Outbound) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM matches WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete match %s: %w", id, err)
		}
		return insertEvents(ctx, tx, evts)
	})
}

func insertEvents(ctx context.Context, tx pgx.Tx, evts []events.Outbound) error {
	if len(evts) == 0 {
		return nil
	}
	repo := outbox.NewRepository(tx)
	for _, evt := range evts {
		if err := repo.Insert(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

func matchArgs(m *models.Match) []any {
	return []any{
		m.ID, m.Creator, m.Acceptor, m.CreatedAt, m.StartedAt, m.EndedAt,
		m.LastMoveAt, m.TimeLimit, m.ExtraTimePerMove, m.FirstToActChoice,
		m.WhiteSidePlayer, sideVal(m.ActingSide), string(m.Status), m.AILevel,
		m.Board, m.History, m.Winner, winVal(m.WinBy), drawVal(m.DrawBy),
		sideVal(m.DrawRequestedSide), m.WhiteTimeRemaining,
		m.BlackTimeRemaining, m.Version,
	}
}

func scanMatch(row pgx.Row) (*models.Match, error) {
	var (
		m       models.Match
		status  string
		acting  *int
		drawReq *int
		winBy   *string
		drawBy  *string
	)
	err := row.Scan(
		&m.ID, &m.Creator, &m.Acceptor, &m.CreatedAt, &m.StartedAt, &m.EndedAt,
		&m.LastMoveAt, &m.TimeLimit, &m.ExtraTimePerMove, &m.FirstToActChoice,
		&m.WhiteSidePlayer, &acting, &status, &m.AILevel, &m.Board, &m.History,
		&m.Winner, &winBy, &drawBy, &drawReq, &m.WhiteTimeRemaining,
		&m.BlackTimeRemaining, &m.Version,
	)
	if err != nil {
		return nil, err
	}
	m.Status = models.MatchStatus(status)
	if acting != nil {
		s := models.MatchSide(*acting)
		m.ActingSide = &s
	}
	if drawReq != nil {
		s := models.MatchSide(*drawReq)
		m.DrawRequestedSide = &s
	}
	if winBy != nil {
		w := models.WinDescriptor(*winBy)
		m.WinBy = &w
	}
	if drawBy != nil {
		d := models.DrawDescriptor(*drawBy)
		m.DrawBy = &d
	}
	return &m, nil
}

func sideVal(s *models.MatchSide) *int {
	if s == nil {
		return nil
	}
	v := int(*s)
	return &v
}

func winVal(w *models.WinDescriptor) *string {
	if w == nil {
		return nil
	}
	s := string(*w)
	return &s
}

func drawVal(d *models.DrawDescriptor) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}
