package accessrequest

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
	byID   map[int64]*AccessRequest
	names  NameLookup
}

func NewRepoMem(names NameLookup) *RepoMem {
	return &RepoMem{byID: make(map[int64]*AccessRequest), names: names}
}

func (r *RepoMem) Create(ctx context.Context, ar *AccessRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.ClinicianID == ar.ClinicianID && existing.PatientID == ar.PatientID {
			return db.ErrConflict
		}
	}

	r.nextID++
	ar.ID = r.nextID
	now := time.Now().UTC()
	ar.CreatedAt = now
	ar.UpdatedAt = now
	cp := *ar
	r.byID[ar.ID] = &cp
	return nil
}

func (r *RepoMem) GetByID(ctx context.Context, id int64) (*AccessRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ar, ok := r.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *ar
	return &cp, nil
}

func (r *RepoMem) GetByPair(ctx context.Context, clinicianID, patientID int64) (*AccessRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, ar := range r.byID {
		if ar.ClinicianID == clinicianID && ar.PatientID == patientID {
			cp := *ar
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *RepoMem) ListByPatient(ctx context.Context, patientID int64) ([]*AccessRequest, error) {
	return r.list(ctx, func(ar *AccessRequest) bool { return ar.PatientID == patientID },
		func(ctx context.Context, ar *AccessRequest) error {
			name, err := r.lookup(ctx, ar.ClinicianID)
			ar.ClinicianName = name
			return err
		})
}

func (r *RepoMem) ListByClinician(ctx context.Context, clinicianID int64) ([]*AccessRequest, error) {
	return r.list(ctx, func(ar *AccessRequest) bool { return ar.ClinicianID == clinicianID },
		func(ctx context.Context, ar *AccessRequest) error {
			name, err := r.lookup(ctx, ar.PatientID)
			ar.PatientName = name
			return err
		})
}

func (r *RepoMem) lookup(ctx context.Context, userID int64) (string, error) {
	if r.names == nil {
		return "", nil
	}
	return r.names(ctx, userID)
}

func (r *RepoMem) list(ctx context.Context, match func(*AccessRequest) bool, decorate func(context.Context, *AccessRequest) error) ([]*AccessRequest, error) {
	r.mu.RLock()
	var out []*AccessRequest
	for _, ar := range r.byID {
		if match(ar) {
			cp := *ar
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

	for _, ar := range out {
		if err := decorate(ctx, ar); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *RepoMem) Resolve(ctx context.Context, id, patientID int64, status string) (*AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ar, ok := r.byID[id]
	if !ok || ar.PatientID != patientID || ar.Status != StatusPending {
		return nil, db.ErrNotFound
	}
	ar.Status = status
	ar.UpdatedAt = time.Now().UTC()
	cp := *ar
	return &cp, nil
}
