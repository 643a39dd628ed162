package auditlog

import (
	"context"
	"sync"
	"time"

	"github.com/medvault/medvault/pkg/pagination"
)

// RepoMem is the in-memory repository used when Postgres is unreachable and
// in tests.
type RepoMem struct {
	mu      sync.RWMutex
	nextID  int64
	entries []*Entry
}

func NewRepoMem() *RepoMem {
	return &RepoMem{nextID: 1}
}

func (r *RepoMem) Append(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *e
	stored.ID = r.nextID
	stored.CreatedAt = time.Now().UTC()
	r.nextID++
	r.entries = append(r.entries, &stored)

	e.ID = stored.ID
	e.CreatedAt = stored.CreatedAt
	return nil
}

func (r *RepoMem) ListByActor(_ context.Context, actorID int64, limit, offset int) ([]*Entry, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Newest first, matching the SQL ordering.
	var matched []*Entry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].ActorID == actorID {
			e := *r.entries[i]
			matched = append(matched, &e)
		}
	}

	total := len(matched)
	start, end := pagination.Params{Limit: limit, Offset: offset}.Slice(total)
	return matched[start:end], total, nil
}
