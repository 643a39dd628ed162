package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/medvault/medvault/internal/platform/db"
)

// PatientLookup resolves a patient ID to display name and phone number. The
// memory repo uses it where the SQL backend joins the users table.
type PatientLookup func(ctx context.Context, userID int64) (name, phone string, err error)

type RepoMem struct {
	mu       sync.RWMutex
	nextID   int64
	byID     map[int64]*Reminder
	patients PatientLookup
}

func NewRepoMem(patients PatientLookup) *RepoMem {
	return &RepoMem{byID: make(map[int64]*Reminder), patients: patients}
}

func (r *RepoMem) Create(_ context.Context, rem *Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	rem.ID = r.nextID
	rem.CreatedAt = time.Now().UTC()
	cp := *rem
	r.byID[rem.ID] = &cp
	return nil
}

func (r *RepoMem) GetByID(_ context.Context, id int64) (*Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rem, ok := r.byID[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *rem
	return &cp, nil
}

func (r *RepoMem) ListPending(ctx context.Context, from, until time.Time) ([]*Reminder, error) {
	r.mu.RLock()
	var out []*Reminder
	for _, rem := range r.byID {
		if rem.Sent {
			continue
		}
		if rem.AppointmentDate.Before(from) || !rem.AppointmentDate.Before(until) {
			continue
		}
		cp := *rem
		out = append(out, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].AppointmentDate.Equal(out[j].AppointmentDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].AppointmentDate.Before(out[j].AppointmentDate)
	})

	if r.patients != nil {
		for _, rem := range out {
			name, phone, err := r.patients(ctx, rem.PatientID)
			if err != nil {
				return nil, err
			}
			rem.PatientName = name
			rem.PatientPhone = phone
		}
	}
	return out, nil
}

func (r *RepoMem) MarkSent(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.byID[id]
	if !ok || rem.Sent {
		return db.ErrNotFound
	}
	rem.Sent = true
	sentAt := at
	rem.SentAt = &sentAt
	return nil
}
