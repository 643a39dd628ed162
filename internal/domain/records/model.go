package records

import "time"

// Record maps to the records table: one uploaded document owned by the
// clinician who uploaded it and attached to a patient. ClinicianName is
// joined for list responses and never written.
type Record struct {
	ID          int64     `db:"id" json:"id"`
	PatientID   int64     `db:"patient_id" json:"patient_id"`
	ClinicianID int64     `db:"clinician_id" json:"clinician_id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	FileName    string    `db:"file_name" json:"file_name"`
	FileType    string    `db:"file_type" json:"file_type"`
	FileSize    int64     `db:"file_size" json:"file_size"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	ClinicianName string `db:"-" json:"clinician_name,omitempty"`
}
