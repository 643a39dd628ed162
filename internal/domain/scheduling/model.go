package scheduling

import "time"

// Reminder maps to the reminders table: one SMS appointment reminder,
// flipped to sent exactly once. PatientName and PatientPhone are joined for
// list responses and never written.
type Reminder struct {
	ID              int64      `db:"id" json:"id"`
	ClinicianID     int64      `db:"clinician_id" json:"clinician_id"`
	PatientID       int64      `db:"patient_id" json:"patient_id"`
	AppointmentDate time.Time  `db:"appointment_date" json:"appointment_date"`
	Description     string     `db:"description" json:"description"`
	Sent            bool       `db:"reminder_sent" json:"reminder_sent"`
	SentAt          *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`

	PatientName  string `db:"-" json:"patient_name,omitempty"`
	PatientPhone string `db:"-" json:"patient_phone,omitempty"`
}
