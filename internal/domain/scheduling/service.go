package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/accessrequest"
	"github.com/medvault/medvault/internal/domain/auditlog"
	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/notification"
)

// ErrAccessDenied is returned when a clinician schedules a reminder for a
// patient who has not approved their access request.
var ErrAccessDenied = errors.New("access to this patient has not been granted")

// pendingWindow is how far ahead ListPending looks for upcoming
// appointments.
const pendingWindow = 24 * time.Hour

type Service struct {
	repo   Repository
	users  *identity.Service
	access *accessrequest.Service
	audit  *auditlog.Service
	notify *notification.Dispatcher
	logger zerolog.Logger

	now func() time.Time
}

func NewService(repo Repository, users *identity.Service, access *accessrequest.Service, audit *auditlog.Service, notify *notification.Dispatcher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		users:  users,
		access: access,
		audit:  audit,
		notify: notify,
		logger: logger,
		now:    time.Now,
	}
}

// Schedule books an SMS reminder for an upcoming appointment. The clinician
// must hold approved access to the patient.
func (s *Service) Schedule(ctx context.Context, clinicianID, patientID int64, appointment time.Time, description string) (*Reminder, error) {
	if _, err := s.users.FindPatient(ctx, patientID); err != nil {
		return nil, err
	}

	status, err := s.access.StatusOf(ctx, clinicianID, patientID)
	if err != nil {
		return nil, err
	}
	if status != accessrequest.StatusApproved {
		return nil, ErrAccessDenied
	}

	if appointment.Before(s.now()) {
		return nil, fmt.Errorf("%w: appointment date is in the past", db.ErrInvalidInput)
	}

	rem := &Reminder{
		ClinicianID:     clinicianID,
		PatientID:       patientID,
		AppointmentDate: appointment,
		Description:     description,
	}
	if err := s.repo.Create(ctx, rem); err != nil {
		return nil, err
	}
	return rem, nil
}

// ListPending returns unsent reminders whose appointment falls inside the
// next 24 hours.
func (s *Service) ListPending(ctx context.Context) ([]*Reminder, error) {
	from := s.now()
	return s.repo.ListPending(ctx, from, from.Add(pendingWindow))
}

// Send delivers a reminder's SMS and flips it to sent. A reminder can only
// be sent once; the guarded update closes the race between two callers.
func (s *Service) Send(ctx context.Context, actorID int64, reminderID int64, origin auditlog.Origin) (*Reminder, error) {
	rem, err := s.repo.GetByID(ctx, reminderID)
	if err != nil {
		return nil, err
	}
	if rem.Sent {
		return nil, fmt.Errorf("%w: reminder already sent", db.ErrConflict)
	}

	patient, err := s.users.GetUser(ctx, rem.PatientID)
	if err != nil {
		return nil, err
	}
	provider, err := s.users.GetUser(ctx, rem.ClinicianID)
	if err != nil {
		return nil, err
	}

	sentAt := s.now().UTC()
	if err := s.repo.MarkSent(ctx, rem.ID, sentAt); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: reminder already sent", db.ErrConflict)
		}
		return nil, err
	}
	rem.Sent = true
	rem.SentAt = &sentAt

	if patient.PhoneNumber == "" {
		s.logger.Warn().Int64("reminder_id", rem.ID).Int64("patient_id", patient.ID).
			Msg("reminder marked sent but patient has no phone number")
	} else {
		s.notify.SendAppointmentReminder(ctx, patient.PhoneNumber, provider.Username,
			rem.AppointmentDate.Format("Jan 2, 2006 at 3:04 PM"), rem.Description)
	}

	s.audit.Record(ctx, auditlog.Entry{
		ActorID:   actorID,
		ActorRole: identity.RoleClinician,
		Action:    auditlog.ActionReminderSent,
		PatientID: &rem.PatientID,
		Changes:   map[string]interface{}{"reminder_id": rem.ID, "appointment_date": rem.AppointmentDate.Format(time.RFC3339)},
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
	})
	return rem, nil
}
