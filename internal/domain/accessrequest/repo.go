package accessrequest

import "context"

// Repository persists access requests. Create relies on a unique
// (clinician_id, patient_id) constraint; Resolve only moves a pending row so
// concurrent approvals cannot both win.
type Repository interface {
	Create(ctx context.Context, ar *AccessRequest) error
	GetByID(ctx context.Context, id int64) (*AccessRequest, error)
	GetByPair(ctx context.Context, clinicianID, patientID int64) (*AccessRequest, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*AccessRequest, error)
	ListByClinician(ctx context.Context, clinicianID int64) ([]*AccessRequest, error)
	// Resolve flips a pending request owned by patientID to status.
	// Returns db.ErrNotFound when no pending row matched.
	Resolve(ctx context.Context, id, patientID int64, status string) (*AccessRequest, error)
}
