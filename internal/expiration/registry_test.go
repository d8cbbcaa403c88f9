package expiration

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chess-arena/chessarena/internal/models"
)

func TestRegistryUpsertReplaces(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	id := uuid.New()

	r.Upsert(id, models.SideWhite, now.Add(-time.Second))
	r.Upsert(id, models.SideBlack, now.Add(time.Minute))

	if r.Len() != 1 {
		t.Fatalf("expected one entry per match, got %d", r.Len())
	}
	if expired := r.Sweep(now); len(expired) != 0 {
		t.Fatalf("re-armed entry must use the new deadline, got %v", expired)
	}
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()

	r.Upsert(id, models.SideWhite, time.Now())
	r.Clear(id)
	r.Clear(uuid.New()) // unknown id is a no-op

	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d entries", r.Len())
	}
}

func TestSweepReturnsOnlyExpired(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	expired := uuid.New()
	onBoundary := uuid.New()
	future := uuid.New()
	r.Upsert(expired, models.SideWhite, now.Add(-time.Second))
	r.Upsert(onBoundary, models.SideBlack, now)
	r.Upsert(future, models.SideWhite, now.Add(time.Second))

	swept := r.Sweep(now)
	if len(swept) != 2 {
		t.Fatalf("expected 2 expired entries, got %d", len(swept))
	}
	for _, e := range swept {
		if e.MatchID == future {
			t.Fatal("future entry must not be swept")
		}
	}

	// Sweep does not remove; the registry still holds all three.
	if r.Len() != 3 {
		t.Fatalf("sweep must not remove entries, got %d", r.Len())
	}
}

func TestRemoveIsConditionedOnIdentity(t *testing.T) {
	r := NewRegistry()
	now := time.Now()
	id := uuid.New()

	r.Upsert(id, models.SideWhite, now.Add(-time.Second))
	swept := r.Sweep(now)
	if len(swept) != 1 {
		t.Fatalf("expected 1 swept entry, got %d", len(swept))
	}

	// Re-armed between sweep and removal: the stale entry must not clobber
	// the fresh one.
	r.Upsert(id, models.SideBlack, now.Add(time.Minute))
	if r.Remove(swept[0]) {
		t.Fatal("removing a superseded entry must be a no-op")
	}
	if r.Len() != 1 {
		t.Fatal("fresh entry must survive removal of the stale one")
	}

	// Without interference the removal goes through.
	fresh := r.Sweep(now.Add(2 * time.Minute))
	if len(fresh) != 1 || !r.Remove(fresh[0]) {
		t.Fatal("current entry must be removable")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d entries", r.Len())
	}
}
