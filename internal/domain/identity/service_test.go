package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
)

func newTestService() (*Service, *UserRepoMem) {
	repo := NewUserRepoMem()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewService(repo, issuer), repo
}

func TestRegisterIssuesToken(t *testing.T) {
	svc, _ := newTestService()

	u, token, err := svc.Register(context.Background(), "alice", "alice@example.com", "+15550001111", "s3cret", RolePatient)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.ID == 0 {
		t.Error("expected assigned user ID")
	}
	if u.PasswordHash == "s3cret" {
		t.Error("password stored in plain text")
	}
	if token == "" {
		t.Error("expected a session token")
	}

	claims, err := auth.NewTokenIssuer("test-secret", time.Hour).Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != u.ID || claims.Role != RolePatient {
		t.Errorf("claims = %+v, want user %d role %s", claims, u.ID, RolePatient)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.Register(context.Background(), "bob", "bob@example.com", "", "pw", "admin")
	if !errors.Is(err, db.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, _, err := svc.Register(ctx, "alice", "alice@example.com", "", "pw", RolePatient); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, _, err := svc.Register(ctx, "alice", "other@example.com", "", "pw", RolePatient)
	if !errors.Is(err, db.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, _, err := svc.Register(ctx, "carol", "carol@example.com", "", "letmein", RoleClinician); err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, token, err := svc.Login(ctx, "carol", "letmein")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if u.Username != "carol" || token == "" {
		t.Errorf("got user %q token %q", u.Username, token)
	}

	if _, _, err := svc.Login(ctx, "carol", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "letmein"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown user: err = %v, want ErrInvalidCredentials", err)
	}
}

type stubGoogleVerifier struct {
	profile *auth.GoogleProfile
	err     error
}

func (s *stubGoogleVerifier) Verify(ctx context.Context, idToken string) (*auth.GoogleProfile, error) {
	return s.profile, s.err
}

func TestGoogleLoginProvisionsPatient(t *testing.T) {
	svc, repo := newTestService()
	svc.SetGoogleVerifier(&stubGoogleVerifier{profile: &auth.GoogleProfile{
		Email:         "dave@example.com",
		EmailVerified: "true",
		Name:          "Dave",
	}})

	u, token, err := svc.GoogleLogin(context.Background(), "fake-id-token")
	if err != nil {
		t.Fatalf("GoogleLogin: %v", err)
	}
	if u.Username != "dave" || u.Role != RolePatient {
		t.Errorf("provisioned user = %+v", u)
	}
	if token == "" {
		t.Error("expected a session token")
	}

	stored, err := repo.GetByEmail(context.Background(), "dave@example.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}

	// A second sign-in must reuse the account, not create another.
	again, _, err := svc.GoogleLogin(context.Background(), "fake-id-token")
	if err != nil {
		t.Fatalf("second GoogleLogin: %v", err)
	}
	if again.ID != stored.ID {
		t.Errorf("second login user ID = %d, want %d", again.ID, stored.ID)
	}
}

func TestGoogleLoginUsernameCollision(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, _, err := svc.Register(ctx, "dave", "dave@elsewhere.com", "", "pw", RolePatient); err != nil {
		t.Fatalf("Register: %v", err)
	}
	svc.SetGoogleVerifier(&stubGoogleVerifier{profile: &auth.GoogleProfile{
		Email:         "dave@example.com",
		EmailVerified: "true",
	}})

	u, _, err := svc.GoogleLogin(ctx, "fake-id-token")
	if err != nil {
		t.Fatalf("GoogleLogin: %v", err)
	}
	if u.Username != "dave1" {
		t.Errorf("username = %q, want dave1", u.Username)
	}
}

func TestGoogleLoginBadToken(t *testing.T) {
	svc, _ := newTestService()
	svc.SetGoogleVerifier(&stubGoogleVerifier{err: errors.New("token rejected")})

	if _, _, err := svc.GoogleLogin(context.Background(), "bad"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestGoogleLoginNotConfigured(t *testing.T) {
	svc, _ := newTestService()

	if _, _, err := svc.GoogleLogin(context.Background(), "tok"); !errors.Is(err, db.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestFindPatientHidesClinicians(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	doc, _, err := svc.Register(ctx, "drjones", "jones@example.com", "", "pw", RoleClinician)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.FindPatient(ctx, doc.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("FindPatient(clinician): err = %v, want ErrNotFound", err)
	}
	if _, err := svc.FindPatientByUsername(ctx, "drjones"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("FindPatientByUsername(clinician): err = %v, want ErrNotFound", err)
	}
}

type stubAccessLookup struct {
	status string
}

func (s *stubAccessLookup) StatusOf(ctx context.Context, clinicianID, patientID int64) (string, error) {
	return s.status, nil
}

func TestLookupPatient(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	pat, _, err := svc.Register(ctx, "eve", "eve@example.com", "", "pw", RolePatient)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Without a lookup wired in, status defaults to none.
	summary, err := svc.LookupPatient(ctx, 99, pat.ID)
	if err != nil {
		t.Fatalf("LookupPatient: %v", err)
	}
	if summary.AccessStatus != "none" {
		t.Errorf("AccessStatus = %q, want none", summary.AccessStatus)
	}

	svc.SetAccessLookup(&stubAccessLookup{status: "approved"})
	summary, err = svc.LookupPatient(ctx, 99, pat.ID)
	if err != nil {
		t.Fatalf("LookupPatient: %v", err)
	}
	if summary.AccessStatus != "approved" || summary.Username != "eve" {
		t.Errorf("summary = %+v", summary)
	}

	if _, err := svc.LookupPatient(ctx, 99, 123456); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("missing patient: err = %v, want ErrNotFound", err)
	}
}

func TestSearchPatientsCapsResults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	for i := 0; i < 15; i++ {
		username := "pat" + string(rune('a'+i))
		if _, _, err := svc.Register(ctx, username, username+"@example.com", "", "pw", RolePatient); err != nil {
			t.Fatalf("Register %s: %v", username, err)
		}
	}

	profiles, err := svc.SearchPatients(ctx, "pat")
	if err != nil {
		t.Fatalf("SearchPatients: %v", err)
	}
	if len(profiles) != searchLimit {
		t.Errorf("len = %d, want %d", len(profiles), searchLimit)
	}
}
