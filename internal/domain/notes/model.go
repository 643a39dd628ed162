package notes

import "time"

// Note maps to the doctor_notes table. ProviderName and ProviderEmail are
// joined for list responses and never written.
type Note struct {
	ID              int64     `db:"id" json:"id"`
	ProviderID      int64     `db:"provider_id" json:"provider_id"`
	PatientID       int64     `db:"patient_id" json:"patient_id"`
	Note            string    `db:"note" json:"note"`
	AppointmentDate time.Time `db:"appointment_date" json:"appointment_date"`
	SendReminder    bool      `db:"send_reminder" json:"send_reminder"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`

	ProviderName  string `db:"-" json:"provider_name,omitempty"`
	ProviderEmail string `db:"-" json:"provider_email,omitempty"`
}
