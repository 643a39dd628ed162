package accessrequest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/auditlog"
	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/notification"
)

type Service struct {
	repo   Repository
	users  *identity.Service
	audit  *auditlog.Service
	notify *notification.Dispatcher
	logger zerolog.Logger
}

func NewService(repo Repository, users *identity.Service, audit *auditlog.Service, notify *notification.Dispatcher, logger zerolog.Logger) *Service {
	return &Service{repo: repo, users: users, audit: audit, notify: notify, logger: logger}
}

// Submit files a pending request from a clinician toward a patient. The
// reason is shown to the patient when they decide. A pair may only ever
// hold one request; resubmission after rejection is refused.
func (s *Service) Submit(ctx context.Context, clinicianID int64, clinicianName string, patientID int64, reason string, origin auditlog.Origin) (*AccessRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: reason is required", db.ErrInvalidInput)
	}

	patient, err := s.users.FindPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByPair(ctx, clinicianID, patientID)
	if err == nil {
		if existing.Status == StatusRejected {
			s.logger.Warn().
				Int64("clinician_id", clinicianID).
				Int64("patient_id", patientID).
				Msg("access request resubmission after rejection refused")
		}
		return nil, fmt.Errorf("%w: access request already %s", db.ErrConflict, existing.Status)
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	ar := &AccessRequest{ClinicianID: clinicianID, PatientID: patientID, Reason: reason, Status: StatusPending}
	if err := s.repo.Create(ctx, ar); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditlog.Entry{
		ActorID:   clinicianID,
		ActorRole: identity.RoleClinician,
		Action:    auditlog.ActionAccessRequestSubmitted,
		PatientID: &patientID,
		Changes:   map[string]interface{}{"reason": reason},
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
	})

	if patient.PhoneNumber != "" {
		s.notify.SendAccessRequested(ctx, patient.PhoneNumber, clinicianName)
	}
	return ar, nil
}

// Approve grants a pending request. Only the patient the request targets may
// approve it, and only while it is still pending.
func (s *Service) Approve(ctx context.Context, requestID, patientID int64, patientName string, origin auditlog.Origin) (*AccessRequest, error) {
	return s.resolve(ctx, requestID, patientID, patientName, StatusApproved, origin)
}

// Reject declines a pending request under the same ownership and status
// rules as Approve.
func (s *Service) Reject(ctx context.Context, requestID, patientID int64, patientName string, origin auditlog.Origin) (*AccessRequest, error) {
	return s.resolve(ctx, requestID, patientID, patientName, StatusRejected, origin)
}

func (s *Service) resolve(ctx context.Context, requestID, patientID int64, patientName, status string, origin auditlog.Origin) (*AccessRequest, error) {
	ar, err := s.repo.Resolve(ctx, requestID, patientID, status)
	if errors.Is(err, db.ErrNotFound) {
		// Nothing pending matched. Distinguish a missing or foreign request
		// from one that was already resolved.
		existing, getErr := s.repo.GetByID(ctx, requestID)
		if getErr != nil || existing.PatientID != patientID {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("%w: access request already %s", db.ErrConflict, existing.Status)
	}
	if err != nil {
		return nil, err
	}

	action := auditlog.ActionAccessApproved
	if status == StatusRejected {
		action = auditlog.ActionAccessRejected
	}
	s.audit.Record(ctx, auditlog.Entry{
		ActorID:   patientID,
		ActorRole: identity.RolePatient,
		Action:    action,
		PatientID: &patientID,
		Changes:   map[string]interface{}{"access_request_id": ar.ID, "clinician_id": ar.ClinicianID},
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
	})

	if clin, err := s.users.GetUser(ctx, ar.ClinicianID); err == nil && clin.PhoneNumber != "" {
		if status == StatusApproved {
			s.notify.SendAccessApproved(ctx, clin.PhoneNumber, patientName)
		} else {
			s.notify.SendAccessRejected(ctx, clin.PhoneNumber, patientName)
		}
	}
	return ar, nil
}

// StatusOf reports the clinician's standing with a patient. Pairs with no
// request read as none.
func (s *Service) StatusOf(ctx context.Context, clinicianID, patientID int64) (string, error) {
	ar, err := s.repo.GetByPair(ctx, clinicianID, patientID)
	if errors.Is(err, db.ErrNotFound) {
		return StatusNone, nil
	}
	if err != nil {
		return "", err
	}
	return ar.Status, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*AccessRequest, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListByClinician(ctx context.Context, clinicianID int64) ([]*AccessRequest, error) {
	return s.repo.ListByClinician(ctx, clinicianID)
}
