package auditlog

import "time"

// Actions recorded in the audit trail. The trail is append-only; nothing in
// the codebase updates or deletes entries once written.
const (
	ActionAccessRequestSubmitted = "access_request_submitted"
	ActionAccessApproved         = "access_approved"
	ActionAccessRejected         = "access_rejected"
	ActionFileUploaded           = "file_uploaded"
	ActionRecordUpdated          = "record_updated"
	ActionRecordDeleted          = "record_deleted"
	ActionNoteAdded              = "note_added"
	ActionReminderSent           = "reminder_sent"
)

// Entry is a single audit trail record.
type Entry struct {
	ID        int64                  `db:"id" json:"id"`
	ActorID   int64                  `db:"actor_id" json:"actor_id"`
	ActorRole string                 `db:"actor_role" json:"actor_role"`
	Action    string                 `db:"action" json:"action"`
	RecordID  *int64                 `db:"record_id" json:"record_id,omitempty"`
	PatientID *int64                 `db:"patient_id" json:"patient_id,omitempty"`
	Changes   map[string]interface{} `db:"changes" json:"changes,omitempty"`
	IP        string                 `db:"ip_address" json:"ip_address"`
	UserAgent string                 `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

// Origin carries the request network context an entry is stamped with.
type Origin struct {
	IP        string
	UserAgent string
}
