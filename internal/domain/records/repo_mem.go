package records

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/medvault/medvault/internal/platform/db"
)

// NameLookup resolves a user ID to a display name. The memory repo uses it
// where the SQL backend joins the users table.
type NameLookup func(ctx context.Context, userID int64) (string, error)

type RepoMem struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*Record
	names  NameLookup
}

func NewRepoMem(names NameLookup) *RepoMem {
	return &RepoMem{byID: make(map[int64]*Record), names: names}
}

func (r *RepoMem) Create(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rec.ID = r.nextID
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	cp := *rec
	r.byID[rec.ID] = &cp
	return nil
}

func (r *RepoMem) GetByID(_ context.Context, id int64) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *RepoMem) ListByPatient(ctx context.Context, patientID int64) ([]*Record, error) {
	r.mu.RLock()
	var out []*Record
	for _, rec := range r.byID {
		if rec.PatientID == patientID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if r.names != nil {
		for _, rec := range out {
			name, err := r.names(ctx, rec.ClinicianID)
			if err != nil {
				return nil, err
			}
			rec.ClinicianName = name
		}
	}
	return out, nil
}

func (r *RepoMem) Update(_ context.Context, id, clinicianID int64, title, description string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.ClinicianID != clinicianID {
		return nil, db.ErrNotFound
	}
	rec.Title = title
	rec.Description = description
	rec.UpdatedAt = time.Now().UTC()
	cp := *rec
	return &cp, nil
}

func (r *RepoMem) Delete(_ context.Context, id, clinicianID int64) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok || rec.ClinicianID != clinicianID {
		return nil, db.ErrNotFound
	}
	delete(r.byID, id)
	return rec, nil
}
