package records

import "context"

// Repository persists record metadata. File bytes live in the filestore;
// only the stored name is kept here.
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id int64) (*Record, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*Record, error)
	// Update modifies title and description of a record owned by
	// clinicianID. Returns db.ErrNotFound when no owned row matched.
	Update(ctx context.Context, id, clinicianID int64, title, description string) (*Record, error)
	// Delete removes a record owned by clinicianID under the same
	// ownership rule as Update.
	Delete(ctx context.Context, id, clinicianID int64) (*Record, error)
}
