package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/medvault/medvault/internal/platform/db"
)

// UserRepoMem is the in-memory repository used when Postgres is unreachable
// and in tests. It enforces the same uniqueness rules as the SQL schema.
type UserRepoMem struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*User
}

func NewUserRepoMem() *UserRepoMem {
	return &UserRepoMem{nextID: 1, byID: make(map[int64]*User)}
}

func (r *UserRepoMem) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Username == u.Username || existing.Email == u.Email {
			return db.ErrConflict
		}
	}

	stored := *u
	stored.ID = r.nextID
	stored.CreatedAt = time.Now().UTC()
	r.nextID++
	r.byID[stored.ID] = &stored

	u.ID = stored.ID
	u.CreatedAt = stored.CreatedAt
	return nil
}

func (r *UserRepoMem) GetByID(_ context.Context, id int64) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *UserRepoMem) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *UserRepoMem) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *UserRepoMem) SearchPatients(_ context.Context, prefix string, limit int) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*User
	lower := strings.ToLower(prefix)
	for _, u := range r.byID {
		if u.Role == RolePatient && strings.HasPrefix(strings.ToLower(u.Username), lower) {
			out := *u
			matched = append(matched, &out)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].Username < matched[j].Username })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
