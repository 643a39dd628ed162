package notes

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ProviderLookup resolves a provider ID to display name and email. The
// memory repo uses it where the SQL backend joins the users table.
type ProviderLookup func(ctx context.Context, userID int64) (name, email string, err error)

type RepoMem struct {
	mu        sync.RWMutex
	nextID    int64
	notes     []*Note
	providers ProviderLookup
}

func NewRepoMem(providers ProviderLookup) *RepoMem {
	return &RepoMem{providers: providers}
}

func (r *RepoMem) Create(_ context.Context, n *Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now().UTC()
	cp := *n
	r.notes = append(r.notes, &cp)
	return nil
}

func (r *RepoMem) ListByPatient(ctx context.Context, patientID int64) ([]*Note, error) {
	r.mu.RLock()
	var out []*Note
	for _, n := range r.notes {
		if n.PatientID == patientID {
			cp := *n
			out = append(out, &cp)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AppointmentDate.Equal(out[j].AppointmentDate) {
			return out[i].ID > out[j].ID
		}
		return out[i].AppointmentDate.After(out[j].AppointmentDate)
	})

	if r.providers != nil {
		for _, n := range out {
			name, email, err := r.providers(ctx, n.ProviderID)
			if err != nil {
				return nil, err
			}
			n.ProviderName = name
			n.ProviderEmail = email
		}
	}
	return out, nil
}
