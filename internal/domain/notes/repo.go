package notes

import "context"

type Repository interface {
	Create(ctx context.Context, n *Note) error
	// ListByPatient returns the patient's notes, newest appointment first,
	// with provider name and email populated.
	ListByPatient(ctx context.Context, patientID int64) ([]*Note, error)
}
