package records

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/accessrequest"
	"github.com/medvault/medvault/internal/domain/auditlog"
	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/filestore"
)

// ErrAccessDenied is returned when a clinician operates on a patient who has
// not approved their access request.
var ErrAccessDenied = errors.New("access to this patient has not been granted")

type Service struct {
	repo   Repository
	store  filestore.Store
	users  *identity.Service
	access *accessrequest.Service
	audit  *auditlog.Service
	logger zerolog.Logger
}

func NewService(repo Repository, store filestore.Store, users *identity.Service, access *accessrequest.Service, audit *auditlog.Service, logger zerolog.Logger) *Service {
	return &Service{repo: repo, store: store, users: users, access: access, audit: audit, logger: logger}
}

// UploadInput carries one multipart upload.
type UploadInput struct {
	PatientID   int64
	Title       string
	Description string
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Upload stores a document for a patient. The file is validated before
// anything is written; a metadata insert failure removes the stored blob so
// no orphan files accumulate.
func (s *Service) Upload(ctx context.Context, clinicianID int64, in UploadInput, origin auditlog.Origin) (*Record, error) {
	if err := filestore.ValidateFile(in.FileName, in.ContentType, in.Size); err != nil {
		return nil, err
	}
	if _, err := s.users.FindPatient(ctx, in.PatientID); err != nil {
		return nil, err
	}

	status, err := s.access.StatusOf(ctx, clinicianID, in.PatientID)
	if err != nil {
		return nil, err
	}
	if status != accessrequest.StatusApproved {
		return nil, ErrAccessDenied
	}

	storedName, size, err := s.store.Save(ctx, clinicianID, in.FileName, in.ContentType, in.Content)
	if err != nil {
		return nil, err
	}

	rec := &Record{
		PatientID:   in.PatientID,
		ClinicianID: clinicianID,
		Title:       in.Title,
		Description: in.Description,
		FileName:    storedName,
		FileType:    in.ContentType,
		FileSize:    size,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		if delErr := s.store.Delete(ctx, storedName); delErr != nil {
			s.logger.Error().Err(delErr).Str("file", storedName).Msg("orphan cleanup after failed insert")
		}
		return nil, err
	}

	s.audit.Record(ctx, auditlog.Entry{
		ActorID:   clinicianID,
		ActorRole: identity.RoleClinician,
		Action:    auditlog.ActionFileUploaded,
		RecordID:  &rec.ID,
		PatientID: &rec.PatientID,
		Changes: map[string]interface{}{
			"title":       rec.Title,
			"description": rec.Description,
			"file_name":   rec.FileName,
		},
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
	})
	return rec, nil
}

// Update edits title and description. Only the uploading clinician may edit;
// foreign records read as not found.
func (s *Service) Update(ctx context.Context, clinicianID, recordID int64, title, description string, origin auditlog.Origin) (*Record, error) {
	rec, err := s.repo.Update(ctx, recordID, clinicianID, title, description)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditlog.Entry{
		ActorID:   clinicianID,
		ActorRole: identity.RoleClinician,
		Action:    auditlog.ActionRecordUpdated,
		RecordID:  &rec.ID,
		PatientID: &rec.PatientID,
		Changes:   map[string]interface{}{"title": title, "description": description},
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
	})
	return rec, nil
}

// Delete removes a record and its stored file. A blob already missing from
// the store is tolerated; the row is gone either way.
func (s *Service) Delete(ctx context.Context, clinicianID, recordID int64, origin auditlog.Origin) error {
	rec, err := s.repo.Delete(ctx, recordID, clinicianID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, rec.FileName); err != nil && !errors.Is(err, filestore.ErrFileNotFound) {
		s.logger.Error().Err(err).Str("file", rec.FileName).Msg("delete stored file")
	}

	s.audit.Record(ctx, auditlog.Entry{
		ActorID:   clinicianID,
		ActorRole: identity.RoleClinician,
		Action:    auditlog.ActionRecordDeleted,
		RecordID:  &rec.ID,
		PatientID: &rec.PatientID,
		Changes:   map[string]interface{}{"title": rec.Title, "file_name": rec.FileName},
		IP:        origin.IP,
		UserAgent: origin.UserAgent,
	})
	return nil
}

// Download opens a record's file for the patient it belongs to. The caller
// closes the reader.
func (s *Service) Download(ctx context.Context, patientID, recordID int64) (*Record, io.ReadCloser, error) {
	rec, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}
	if rec.PatientID != patientID {
		return nil, nil, db.ErrNotFound
	}

	rc, err := s.store.Open(ctx, rec.FileName)
	if err != nil {
		if errors.Is(err, filestore.ErrFileNotFound) {
			return nil, nil, db.ErrNotFound
		}
		return nil, nil, err
	}
	return rec, rc, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*Record, error) {
	return s.repo.ListByPatient(ctx, patientID)
}
