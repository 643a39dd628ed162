package notes

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/auditlog"
	"github.com/medvault/medvault/internal/domain/identity"
)

type Service struct {
	repo   Repository
	users  *identity.Service
	audit  *auditlog.Service
	logger zerolog.Logger
}

func NewService(repo Repository, users *identity.Service, audit *auditlog.Service, logger zerolog.Logger) *Service {
	return &Service{repo: repo, users: users, audit: audit, logger: logger}
}

// Add attaches a visit note to a patient, looked up by username. Unlike
// record uploads, notes do not require an approved access request.
func (s *Service) Add(ctx context.Context, providerID int64, patientUsername, note string, appointmentDate time.Time, sendReminder bool, origin auditlog.Origin) (*Note, error) {
	patient, err := s.users.FindPatientByUsername(ctx, patientUsername)
	if err != nil {
		return nil, err
	}

	n := &Note{
		ProviderID:      providerID,
		PatientID:       patient.ID,
		Note:            note,
		AppointmentDate: appointmentDate,
		SendReminder:    sendReminder,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditlog.Entry{
		ActorID:   providerID,
		ActorRole: identity.RoleClinician,
		Action:    auditlog.ActionNoteAdded,
		PatientID: &patient.ID,
		Changes:   map[string]interface{}{"appointment_date": appointmentDate.Format(time.RFC3339)},
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
	})
	return n, nil
}

// ListMine returns the calling patient's notes, newest appointment first.
func (s *Service) ListMine(ctx context.Context, patientID int64) ([]*Note, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
