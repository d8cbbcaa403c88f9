package match

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// userHeader carries the authenticated user name, set by the edge proxy.
const userHeader = "X-User"

// HTTPAPI exposes the match commands and queries over HTTP.
type HTTPAPI struct {
	app *App
}

func NewHTTPAPI(app *App) *HTTPAPI {
	return &HTTPAPI{app: app}
}

// Register mounts the match routes on the fiber app.
func (h *HTTPAPI) Register(app *fiber.App) {
	matches := app.Group("/matches")
	matches.Post("/", h.createMatch)
	matches.Get("/:id", h.getMatch)
	matches.Post("/:id/accept", h.acceptMatch)
	matches.Post("/:id/cancel", h.cancelMatch)
	matches.Post("/:id/draw/request", h.requestDraw)
	matches.Post("/:id/draw/accept", h.acceptDraw)
	matches.Post("/:id/draw/reject", h.rejectDraw)
	matches.Post("/:id/resign", h.resign)
}

func (h *HTTPAPI) createMatch(c *fiber.Ctx) error {
	user, err := requester(c)
	if err != nil {
		return err
	}

	var req CreateMatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	info, err := h.app.CreateMatch(c.Context(), user, req)
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(info)
}

func (h *HTTPAPI) getMatch(c *fiber.Ctx) error {
	user, matchID, err := requesterAndID(c)
	if err != nil {
		return err
	}
	info, err := h.app.GetMatch(c.Context(), user, matchID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(info)
}

func (h *HTTPAPI) acceptMatch(c *fiber.Ctx) error {
	user, matchID, err := requesterAndID(c)
	if err != nil {
		return err
	}
	info, err := h.app.AcceptMatch(c.Context(), user, matchID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(info)
}

func (h *HTTPAPI) cancelMatch(c *fiber.Ctx) error {
	return h.command(c, h.app.CancelMatch)
}

func (h *HTTPAPI) requestDraw(c *fiber.Ctx) error {
	return h.command(c, h.app.RequestDraw)
}

func (h *HTTPAPI) acceptDraw(c *fiber.Ctx) error {
	return h.command(c, h.app.AcceptDraw)
}

func (h *HTTPAPI) rejectDraw(c *fiber.Ctx) error {
	return h.command(c, h.app.RejectDraw)
}

func (h *HTTPAPI) resign(c *fiber.Ctx) error {
	return h.command(c, h.app.Resign)
}

// command runs one of the body-less match commands and answers 204.
func (h *HTTPAPI) command(c *fiber.Ctx, run func(ctx context.Context, user string, matchID uuid.UUID) error) error {
	user, matchID, err := requesterAndID(c)
	if err != nil {
		return err
	}
	if err := run(c.Context(), user, matchID); err != nil {
		return mapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func requester(c *fiber.Ctx) (string, error) {
	user := c.Get(userHeader)
	if user == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing user identity")
	}
	return user, nil
}

func requesterAndID(c *fiber.Ctx) (string, uuid.UUID, error) {
	user, err := requester(c)
	if err != nil {
		return "", uuid.Nil, err
	}
	matchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return "", uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid match id")
	}
	return user, matchID, nil
}

// mapError translates the domain error taxonomy to HTTP statuses.
func mapError(err error) error {
	var (
		validationErr *ValidationError
		authErr       *AuthorizationError
		notFoundErr   *NotFoundError
		conflictErr   *ConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		return fiber.NewError(fiber.StatusBadRequest, validationErr.Msg)
	case errors.As(err, &authErr):
		return fiber.NewError(fiber.StatusForbidden, authErr.Msg)
	case errors.As(err, &notFoundErr):
		return fiber.NewError(fiber.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &conflictErr):
		return fiber.NewError(fiber.StatusConflict, conflictErr.Msg)
	case errors.Is(err, ErrVersionConflict):
		return fiber.NewError(fiber.StatusConflict, "match was modified concurrently, retry the request")
	default:
		log.Error().Err(err).Msg("unhandled error in match API")
		return fiber.NewError(fiber.StatusInternalServerError, "internal server error")
	}
}
