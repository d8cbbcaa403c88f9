package match

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/chess-arena/chessarena/internal/events"
	"github.com/chess-arena/chessarena/internal/models"
)

// App implements the match commands and queries. All writes go through the
// repository's version check, so two commands racing on the same match
// resolve to exactly one winner.
type App struct {
	repo     MatchRepository
	clock    clockwork.Clock
	validate *validator.Validate
}

func NewApp(repo MatchRepository, clock clockwork.Clock) *App {
	return &App{
		repo:     repo,
		clock:    clock,
		validate: validator.New(),
	}
}

// CreateMatch registers a new match in the CREATED state and announces it.
func (a *App) CreateMatch(ctx context.Context, requester string, req CreateMatchRequest) (*MatchInfo, error) {
	if err := a.validate.Struct(req); err != nil {
		return nil, &ValidationError{Msg: err.Error()}
	}
	if req.VsBot && req.AILevel == nil {
		return nil, &ValidationError{Msg: "aiLevel is required for a match against a bot"}
	}
	if !req.VsBot && req.AILevel != nil {
		return nil, &ValidationError{Msg: "aiLevel is only allowed for a match against a bot"}
	}
	if req.ExtraTimePerMove != nil && req.TimeLimit == nil {
		return nil, &ValidationError{Msg: "extraTimePerMove requires timeLimit"}
	}

	existing, err := a.repo.GetMatch(ctx, req.MatchID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &ConflictError{Msg: fmt.Sprintf("match with id %s already exists", req.MatchID)}
	}

	m := &models.Match{
		ID:               req.MatchID,
		Creator:          requester,
		CreatedAt:        a.clock.Now().UTC(),
		Status:           models.MatchStatusCreated,
		TimeLimit:        req.TimeLimit,
		ExtraTimePerMove: req.ExtraTimePerMove,
		FirstToActChoice: req.FirstToActSide,
		AILevel:          req.AILevel,
	}
	if req.TimeLimit != nil {
		white, black := *req.TimeLimit, *req.TimeLimit
		m.WhiteTimeRemaining = &white
		m.BlackTimeRemaining = &black
	}

	if err := a.repo.CreateMatch(ctx, m, events.NewMatchCreated(m)); err != nil {
		return nil, err
	}

	log.Info().
		Str("match_id", m.ID.String()).
		Str("creator", requester).
		Bool("vs_bot", req.VsBot).
		Msg("match created")

	return toMatchInfo(m), nil
}

// AcceptMatch pairs the requester with a created match, assigns colors and
// starts the game. White is always first to act; which player holds white
// follows the creator's choice, or a coin flip when no choice was made.
func (a *App) AcceptMatch(ctx context.Context, requester string, matchID uuid.UUID) (*MatchInfo, error) {
	m, err := a.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if requester == m.Creator {
		return nil, &ConflictError{Msg: "match creator cannot accept their own match"}
	}
	if m.Status != models.MatchStatusCreated {
		return nil, &ConflictError{Msg: fmt.Sprintf("match %s is not open for acceptance", matchID)}
	}

	now := a.clock.Now().UTC()
	acceptor := requester
	m.Acceptor = &acceptor
	m.StartedAt = &now
	m.Status = models.MatchStatusInProgress
	board := models.StartingBoard
	m.Board = &board
	m.History = []string{}

	white := m.Creator
	switch {
	case m.FirstToActChoice != nil && *m.FirstToActChoice == int(models.SideBlack):
		white = acceptor
	case m.FirstToActChoice == nil && rand.Intn(2) == 1:
		white = acceptor
	}
	m.WhiteSidePlayer = &white
	acting := models.SideWhite
	m.ActingSide = &acting

	evts := []events.Outbound{events.NewMatchStarted(m)}
	if m.TimeLimit != nil {
		expiresAt := now.Add(time.Duration(*m.TimeLimit) * time.Second)
		evts = append(evts, events.NewSideToActChanged(m.ID, acting, expiresAt))
	}

	if err := a.repo.UpdateMatch(ctx, m, evts...); err != nil {
		return nil, err
	}

	log.Info().
		Str("match_id", m.ID.String()).
		Str("acceptor", acceptor).
		Str("white_side_player", white).
		Msg("match started")

	return toMatchInfo(m), nil
}

// CancelMatch withdraws a match that nobody accepted yet. Only the creator
// may cancel, and only before the match starts.
func (a *App) CancelMatch(ctx context.Context, requester string, matchID uuid.UUID) error {
	m, err := a.loadMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if requester != m.Creator {
		return &AuthorizationError{Msg: "only the match creator can cancel the match"}
	}
	if m.Status != models.MatchStatusCreated {
		return &ConflictError{Msg: fmt.Sprintf("match %s has already started", matchID)}
	}

	if err := a.repo.DeleteMatch(ctx, matchID, events.NewMatchCancelled(matchID)); err != nil {
		return err
	}

	log.Info().Str("match_id", matchID.String()).Msg("match cancelled")
	return nil
}

// RequestDraw records a draw offer. Only the idle side can offer: it is
// waiting on the opponent anyway, while the acting side expresses a draw
// wish by playing on or resigning.
func (a *App) RequestDraw(ctx context.Context, requester string, matchID uuid.UUID) error {
	m, side, err := a.loadForDrawAction(ctx, requester, matchID)
	if err != nil {
		return err
	}
	if *side == *m.ActingSide {
		return &AuthorizationError{Msg: "only the side waiting on the opponent can offer a draw"}
	}
	if m.DrawRequestedSide != nil {
		return &ConflictError{Msg: "a draw has already been requested"}
	}
	if finished, err := a.settleIfExpired(ctx, m); err != nil || finished {
		if err != nil {
			return err
		}
		return &ConflictError{Msg: "match has finished on time"}
	}

	m.DrawRequestedSide = side
	return a.repo.UpdateMatch(ctx, m, events.NewDrawRequested(m.ID, *side))
}

// AcceptDraw finishes the match as a draw by agreement. Offers come from the
// idle side, so only the acting side can accept one.
func (a *App) AcceptDraw(ctx context.Context, requester string, matchID uuid.UUID) error {
	m, side, err := a.loadForDrawAction(ctx, requester, matchID)
	if err != nil {
		return err
	}
	if m.DrawRequestedSide == nil {
		return &ConflictError{Msg: "no draw has been requested"}
	}
	if *side != *m.ActingSide {
		return &AuthorizationError{Msg: "only the side to act can accept a draw offer"}
	}
	if finished, err := a.settleIfExpired(ctx, m); err != nil || finished {
		if err != nil {
			return err
		}
		return &ConflictError{Msg: "match has finished on time"}
	}

	now := a.clock.Now().UTC()
	drawBy := models.DrawByAgreement
	m.Status = models.MatchStatusFinished
	m.EndedAt = &now
	m.DrawBy = &drawBy
	m.DrawRequestedSide = nil
	m.ActingSide = nil

	if err := a.repo.UpdateMatch(ctx, m, events.NewMatchFinished(m)); err != nil {
		return err
	}

	log.Info().Str("match_id", m.ID.String()).Msg("match drawn by agreement")
	return nil
}

// RejectDraw declines a pending draw offer. Offers come from the idle side,
// so only the acting side can reject one.
func (a *App) RejectDraw(ctx context.Context, requester string, matchID uuid.UUID) error {
	m, side, err := a.loadForDrawAction(ctx, requester, matchID)
	if err != nil {
		return err
	}
	if m.DrawRequestedSide == nil {
		return &ConflictError{Msg: "no draw has been requested"}
	}
	if *side != *m.ActingSide {
		return &AuthorizationError{Msg: "only the side to act can reject a draw offer"}
	}
	if finished, err := a.settleIfExpired(ctx, m); err != nil || finished {
		if err != nil {
			return err
		}
		return &ConflictError{Msg: "match has finished on time"}
	}

	m.DrawRequestedSide = nil
	return a.repo.UpdateMatch(ctx, m, events.NewDrawRejected(m.ID))
}

// Resign finishes the match with the opponent as winner. A resignation is
// honored even if the resigner's clock already ran out but the timeout has
// not been applied yet.
func (a *App) Resign(ctx context.Context, requester string, matchID uuid.UUID) error {
	m, err := a.loadMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if !m.IsParticipant(requester) {
		return &AuthorizationError{Msg: "only a participant can resign"}
	}
	if m.Status != models.MatchStatusInProgress {
		return &ConflictError{Msg: fmt.Sprintf("match %s is not in progress", matchID)}
	}

	side := m.SideOfPlayer(requester)
	now := a.clock.Now().UTC()
	winBy := models.WinByResignation
	m.Status = models.MatchStatusFinished
	m.EndedAt = &now
	m.Winner = m.PlayerOnSide(side.Opposite())
	m.WinBy = &winBy
	m.DrawRequestedSide = nil
	m.ActingSide = nil

	if err := a.repo.UpdateMatch(ctx, m, events.NewMatchFinished(m)); err != nil {
		return err
	}

	log.Info().
		Str("match_id", m.ID.String()).
		Str("resigned_by", requester).
		Msg("match finished by resignation")
	return nil
}

// GetMatch returns the current state of a match to one of its participants.
// The creator may also view a match that has no acceptor yet.
func (a *App) GetMatch(ctx context.Context, requester string, matchID uuid.UUID) (*MatchInfo, error) {
	m, err := a.loadMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(requester) {
		return nil, &AuthorizationError{Msg: "only a participant can view the match"}
	}
	return toMatchInfo(m), nil
}

// ApplyTimeout settles a reported flag fall. The expiration registry's clock
// is authoritative here: any running match finishes ON_TIME for the opponent
// of the reported side, even when this service's own clock disagrees about
// the expiry instant. Reports for finished or unknown matches are discarded,
// which makes duplicate delivery a no-op.
func (a *App) ApplyTimeout(ctx context.Context, matchID uuid.UUID, side models.MatchSide) error {
	m, err := a.repo.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if m == nil {
		log.Warn().Str("match_id", matchID.String()).Msg("timeout reported for unknown match")
		return nil
	}
	if m.Status != models.MatchStatusInProgress {
		return nil
	}
	return a.finishOnTime(ctx, m, side)
}

// loadMatch fetches a match, translating absence to NotFoundError.
func (a *App) loadMatch(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	m, err := a.repo.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &NotFoundError{MatchID: matchID}
	}
	return m, nil
}

// loadForDrawAction applies the preconditions common to all three draw
// commands and resolves the requester's side.
func (a *App) loadForDrawAction(ctx context.Context, requester string, matchID uuid.UUID) (*models.Match, *models.MatchSide, error) {
	m, err := a.loadMatch(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if !m.IsParticipant(requester) {
		return nil, nil, &AuthorizationError{Msg: "only a participant can act on a draw"}
	}
	if m.Status != models.MatchStatusInProgress {
		return nil, nil, &ConflictError{Msg: fmt.Sprintf("match %s is not in progress", matchID)}
	}
	return m, m.SideOfPlayer(requester), nil
}

// settleIfExpired checks the acting side's clock before a draw command
// mutates anything. An expired clock wins the race: the match is finished on
// time and the caller's command is rejected.
func (a *App) settleIfExpired(ctx context.Context, m *models.Match) (bool, error) {
	side, expired := ExpiredSide(m, a.clock.Now().UTC())
	if !expired {
		return false, nil
	}
	if err := a.finishOnTime(ctx, m, side); err != nil {
		return false, err
	}
	return true, nil
}

func (a *App) finishOnTime(ctx context.Context, m *models.Match, side models.MatchSide) error {
	now := a.clock.Now().UTC()
	winBy := models.WinByOnTime
	m.Status = models.MatchStatusFinished
	m.EndedAt = &now
	m.Winner = m.PlayerOnSide(side.Opposite())
	m.WinBy = &winBy
	m.DrawRequestedSide = nil
	m.ActingSide = nil
	zero := 0
	if side == models.SideWhite {
		m.WhiteTimeRemaining = &zero
	} else {
		m.BlackTimeRemaining = &zero
	}

	if err := a.repo.UpdateMatch(ctx, m, events.NewMatchFinished(m)); err != nil {
		return err
	}

	log.Info().
		Str("match_id", m.ID.String()).
		Str("timed_out_side", side.String()).
		Msg("match finished on time")
	return nil
}
