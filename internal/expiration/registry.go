package expiration

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chess-arena/chessarena/internal/models"
)

// Entry is one armed clock: the side to act on a match and the instant its
// time runs out.
type Entry struct {
	MatchID   uuid.UUID
	Side      models.MatchSide
	ExpiresAt time.Time

	// seq distinguishes successive arms of the same match, so a sweep only
	// removes the entry it actually collected.
	seq uint64
}

// Registry tracks at most one armed clock per match. It is an in-memory
// cache rebuilt from the event stream; losing it on restart only delays
// timeout detection until the next arming event.
type Registry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]Entry
	nextSeq uint64
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[uuid.UUID]Entry)}
}

// Upsert arms or re-arms the clock for a match, replacing any previous entry.
func (r *Registry) Upsert(matchID uuid.UUID, side models.MatchSide, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.entries[matchID] = Entry{
		MatchID:   matchID,
		Side:      side,
		ExpiresAt: expiresAt,
		seq:       r.nextSeq,
	}
}

// Clear disarms the clock for a match. Unknown ids are a no-op.
func (r *Registry) Clear(matchID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, matchID)
}

// Sweep returns every entry expired as of now without removing it. Callers
// hand processed entries back to Remove.
func (r *Registry) Sweep(now time.Time) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []Entry
	for _, e := range r.entries {
		if !e.ExpiresAt.After(now) {
			expired = append(expired, e)
		}
	}
	return expired
}

// Remove deletes a swept entry. The delete is conditioned on the entry still
// being the current one for its match, so a clock re-armed after the sweep
// collected it is left alone.
func (r *Registry) Remove(e Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.entries[e.MatchID]
	if !ok || current.seq != e.seq {
		return false
	}
	delete(r.entries, e.MatchID)
	return true
}

// Len reports the number of armed clocks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
