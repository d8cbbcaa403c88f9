package match

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Client-caused error taxonomy. Handlers return these unwrapped so the
// transport layer can map them to protocol responses; anything else is an
// infrastructure failure and propagates as-is.

// ValidationError rejects malformed or out-of-range command input before any
// mutation.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// AuthorizationError rejects a caller who is not a participant or not the
// side allowed to perform this specific action.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

// NotFoundError signals an unknown match id.
type NotFoundError struct {
	MatchID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("match with id %s wasn't found", e.MatchID)
}

// ConflictError signals a violated state-machine precondition: wrong status,
// duplicate draw request, duplicate create, or a lost concurrent-update race.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// ErrVersionConflict is returned by the repository when a concurrent writer
// got there first. Callers retry the whole command; never a partial apply.
var ErrVersionConflict = errors.New("match was modified concurrently")
