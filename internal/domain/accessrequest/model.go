package accessrequest

import "time"

// Request statuses. A request is created pending and resolved exactly once;
// approved and rejected are terminal. StatusNone is the virtual state
// reported when no request exists for a clinician/patient pair.
const (
	StatusNone     = "none"
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// AccessRequest maps to the access_requests table. ClinicianName and
// PatientName are joined for list responses and never written.
type AccessRequest struct {
	ID          int64     `db:"id" json:"id"`
	ClinicianID int64     `db:"clinician_id" json:"clinician_id"`
	PatientID   int64     `db:"patient_id" json:"patient_id"`
	Reason      string    `db:"reason" json:"reason"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	ClinicianName string `db:"-" json:"clinician_name,omitempty"`
	PatientName   string `db:"-" json:"patient_name,omitempty"`
}
