package records

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/domain/accessrequest"
	"github.com/medvault/medvault/internal/domain/auditlog"
	"github.com/medvault/medvault/internal/domain/identity"
	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
	"github.com/medvault/medvault/internal/platform/filestore"
	"github.com/medvault/medvault/internal/platform/notification"
)

type fixture struct {
	svc      *Service
	store    *filestore.MemoryStore
	auditMem *auditlog.RepoMem
	access   *accessrequest.Service

	clinician *identity.User
	patient   *identity.User
}

var noOrigin = auditlog.Origin{IP: "127.0.0.1", UserAgent: "test"}

// newFixture wires the full chain on memory backends: clinician drsmith and
// patient alice, with an approved access request when approved is true.
func newFixture(t *testing.T, approved bool) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	ctx := context.Background()

	userRepo := identity.NewUserRepoMem()
	users := identity.NewService(userRepo, auth.NewTokenIssuer("test-secret", time.Hour))

	auditMem := auditlog.NewRepoMem()
	audit := auditlog.NewService(auditMem, logger)
	notify := notification.NewDispatcher(&notification.MockSMSSender{}, notification.NewTemplateEngine(), logger)

	names := func(ctx context.Context, userID int64) (string, error) {
		u, err := userRepo.GetByID(ctx, userID)
		if err != nil {
			return "", err
		}
		return u.Username, nil
	}
	access := accessrequest.NewService(accessrequest.NewRepoMem(names), users, audit, notify, logger)

	store := filestore.NewMemoryStore()
	svc := NewService(NewRepoMem(names), store, users, access, audit, logger)

	clinician, _, err := users.Register(ctx, "drsmith", "smith@example.com", "", "pw", identity.RoleClinician)
	if err != nil {
		t.Fatalf("seed clinician: %v", err)
	}
	patient, _, err := users.Register(ctx, "alice", "alice@example.com", "", "pw", identity.RolePatient)
	if err != nil {
		t.Fatalf("seed patient: %v", err)
	}

	if approved {
		ar, err := access.Submit(ctx, clinician.ID, clinician.Username, patient.ID, "checkup", noOrigin)
		if err != nil {
			t.Fatalf("submit access request: %v", err)
		}
		if _, err := access.Approve(ctx, ar.ID, patient.ID, patient.Username, noOrigin); err != nil {
			t.Fatalf("approve access request: %v", err)
		}
	}
	return &fixture{svc: svc, store: store, auditMem: auditMem, access: access, clinician: clinician, patient: patient}
}

func pdfUpload(patientID int64, title string) UploadInput {
	return UploadInput{
		PatientID:   patientID,
		Title:       title,
		Description: "routine panel",
		FileName:    "results.pdf",
		ContentType: "application/pdf",
		Content:     strings.NewReader("%PDF-1.4 fake"),
	}
}

func TestUploadStoresFileAndMetadata(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	rec, err := f.svc.Upload(ctx, f.clinician.ID, pdfUpload(f.patient.ID, "Bloodwork"), noOrigin)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if rec.ID == 0 || rec.FileSize == 0 {
		t.Errorf("record = %+v", rec)
	}
	if !strings.HasSuffix(rec.FileName, "results.pdf") {
		t.Errorf("stored name = %q", rec.FileName)
	}
	if f.store.Len() != 1 {
		t.Errorf("store has %d files, want 1", f.store.Len())
	}

	entries, total, err := f.auditMem.ListByActor(ctx, f.clinician.ID, 10, 0)
	if err != nil {
		t.Fatalf("audit: %v", err)
	}
	// submit + upload for this clinician.
	if total != 2 || entries[0].Action != auditlog.ActionFileUploaded {
		t.Errorf("audit total = %d, newest = %+v", total, entries[0])
	}
	if entries[0].Changes["title"] != "Bloodwork" {
		t.Errorf("changes = %v", entries[0].Changes)
	}
}

func TestUploadWithoutApprovalLeavesNothing(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.svc.Upload(context.Background(), f.clinician.ID, pdfUpload(f.patient.ID, "Bloodwork"), noOrigin)
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("err = %v, want ErrAccessDenied", err)
	}
	if f.store.Len() != 0 {
		t.Errorf("store has %d files, want 0", f.store.Len())
	}
	if list, _ := f.svc.ListByPatient(context.Background(), f.patient.ID); len(list) != 0 {
		t.Errorf("records = %+v, want none", list)
	}
}

func TestUploadValidatesBeforeAccessCheck(t *testing.T) {
	f := newFixture(t, false)

	in := pdfUpload(f.patient.ID, "Bloodwork")
	in.FileName = "malware.exe"
	in.ContentType = "application/octet-stream"
	_, err := f.svc.Upload(context.Background(), f.clinician.ID, in, noOrigin)
	if !errors.Is(err, filestore.ErrInvalidFileType) {
		t.Fatalf("err = %v, want ErrInvalidFileType", err)
	}
}

func TestUploadUnknownPatient(t *testing.T) {
	f := newFixture(t, true)

	_, err := f.svc.Upload(context.Background(), f.clinician.ID, pdfUpload(9999, "X"), noOrigin)
	if !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateOwnerOnly(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	rec, err := f.svc.Upload(ctx, f.clinician.ID, pdfUpload(f.patient.ID, "Bloodwork"), noOrigin)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	updated, err := f.svc.Update(ctx, f.clinician.ID, rec.ID, "Bloodwork 2024", "updated", noOrigin)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Bloodwork 2024" {
		t.Errorf("title = %q", updated.Title)
	}

	if _, err := f.svc.Update(ctx, f.clinician.ID+100, rec.ID, "hijack", "", noOrigin); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("foreign update: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesRowAndFile(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	rec, err := f.svc.Upload(ctx, f.clinician.ID, pdfUpload(f.patient.ID, "Bloodwork"), noOrigin)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if err := f.svc.Delete(ctx, f.clinician.ID, rec.ID, noOrigin); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.store.Len() != 0 {
		t.Errorf("store has %d files after delete", f.store.Len())
	}
	if _, _, err := f.svc.Download(ctx, f.patient.ID, rec.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("download after delete: err = %v, want ErrNotFound", err)
	}
	if err := f.svc.Delete(ctx, f.clinician.ID, rec.ID, noOrigin); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestDownload(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	rec, err := f.svc.Upload(ctx, f.clinician.ID, pdfUpload(f.patient.ID, "Bloodwork"), noOrigin)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	got, rc, err := f.svc.Download(ctx, f.patient.ID, rec.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Contains(data, []byte("%PDF")) {
		t.Errorf("content = %q", data)
	}
	if got.ID != rec.ID {
		t.Errorf("record id = %d, want %d", got.ID, rec.ID)
	}

	// Another patient cannot fetch it.
	other, _, err := identityRegister(f, "bob")
	if err != nil {
		t.Fatalf("seed other patient: %v", err)
	}
	if _, _, err := f.svc.Download(ctx, other.ID, rec.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("foreign download: err = %v, want ErrNotFound", err)
	}
}

func identityRegister(f *fixture, username string) (*identity.User, string, error) {
	return f.svc.users.Register(context.Background(), username, username+"@example.com", "", "pw", identity.RolePatient)
}

func TestListByPatientNewestFirst(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	for _, title := range []string{"first", "second"} {
		if _, err := f.svc.Upload(ctx, f.clinician.ID, pdfUpload(f.patient.ID, title), noOrigin); err != nil {
			t.Fatalf("Upload %s: %v", title, err)
		}
	}

	list, err := f.svc.ListByPatient(ctx, f.patient.ID)
	if err != nil {
		t.Fatalf("ListByPatient: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Title != "second" {
		t.Errorf("newest first: got %q", list[0].Title)
	}
	if list[0].ClinicianName != "drsmith" {
		t.Errorf("clinician name = %q", list[0].ClinicianName)
	}
}
