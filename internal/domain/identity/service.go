package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medvault/medvault/internal/platform/auth"
	"github.com/medvault/medvault/internal/platform/db"
)

// ErrInvalidCredentials is returned for any failed login so callers cannot
// tell an unknown username from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

const searchLimit = 10

// AccessStatusLookup answers what standing a clinician has with a patient.
// Implemented by the access-request service; defined here to avoid an import
// cycle.
type AccessStatusLookup interface {
	StatusOf(ctx context.Context, clinicianID, patientID int64) (string, error)
}

// GoogleTokenVerifier validates federated ID tokens.
type GoogleTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*auth.GoogleProfile, error)
}

type Service struct {
	repo   UserRepository
	issuer *auth.TokenIssuer
	google GoogleTokenVerifier
	access AccessStatusLookup
}

func NewService(repo UserRepository, issuer *auth.TokenIssuer) *Service {
	return &Service{repo: repo, issuer: issuer}
}

// SetGoogleVerifier enables federated login.
func (s *Service) SetGoogleVerifier(v GoogleTokenVerifier) { s.google = v }

// SetAccessLookup wires the access-request service in after construction;
// the two services reference each other.
func (s *Service) SetAccessLookup(l AccessStatusLookup) { s.access = l }

// Register creates an account and returns it with a fresh session token.
func (s *Service) Register(ctx context.Context, username, email, phone, password, role string) (*User, string, error) {
	if !validRole(role) {
		return nil, "", fmt.Errorf("%w: role must be patient or clinician", db.ErrInvalidInput)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Username:     username,
		Email:        email,
		PhoneNumber:  phone,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := s.issuer.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login verifies credentials and issues a session token.
func (s *Service) Login(ctx context.Context, username, password string) (*User, string, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.issuer.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// GoogleLogin verifies a Google ID token, provisioning a patient account on
// first sign-in. Federated accounts get an unguessable local password.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*User, string, error) {
	if s.google == nil {
		return nil, "", fmt.Errorf("%w: google login is not configured", db.ErrInvalidInput)
	}

	profile, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, profile.Email)
	if errors.Is(err, db.ErrNotFound) {
		u, err = s.provisionGoogleUser(ctx, profile)
	}
	if err != nil {
		return nil, "", err
	}

	token, err := s.issuer.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *Service) provisionGoogleUser(ctx context.Context, profile *auth.GoogleProfile) (*User, error) {
	base := profile.Email
	if at := strings.IndexByte(base, '@'); at > 0 {
		base = base[:at]
	}

	hash, err := auth.HashPassword(uuid.New().String())
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// Retry with numeric suffixes when the email local part is taken.
	for i := 0; i < 5; i++ {
		username := base
		if i > 0 {
			username = fmt.Sprintf("%s%d", base, i)
		}
		u := &User{
			Username:     username,
			Email:        profile.Email,
			Role:         RolePatient,
			PasswordHash: hash,
		}
		err := s.repo.Create(ctx, u)
		if err == nil {
			return u, nil
		}
		if !errors.Is(err, db.ErrConflict) {
			return nil, err
		}
	}
	return nil, db.ErrConflict
}

// GetUser fetches any account by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// FindPatient resolves a patient account. Accounts with other roles report
// not-found rather than existence.
func (s *Service) FindPatient(ctx context.Context, id int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != RolePatient {
		return nil, db.ErrNotFound
	}
	return u, nil
}

// FindPatientByUsername resolves a patient account by username.
func (s *Service) FindPatientByUsername(ctx context.Context, username string) (*User, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if u.Role != RolePatient {
		return nil, db.ErrNotFound
	}
	return u, nil
}

// PatientSummary is a patient profile annotated with the calling clinician's
// access standing.
type PatientSummary struct {
	Profile
	AccessStatus string `json:"accessStatus"`
}

// LookupPatient returns a patient's profile plus the clinician's current
// access status toward them.
func (s *Service) LookupPatient(ctx context.Context, clinicianID, patientID int64) (*PatientSummary, error) {
	u, err := s.FindPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	status := "none"
	if s.access != nil {
		status, err = s.access.StatusOf(ctx, clinicianID, patientID)
		if err != nil {
			return nil, err
		}
	}
	return &PatientSummary{Profile: u.Profile(), AccessStatus: status}, nil
}

// SearchPatients returns up to ten patients whose username starts with
// prefix, for the clinician autocomplete.
func (s *Service) SearchPatients(ctx context.Context, prefix string) ([]Profile, error) {
	users, err := s.repo.SearchPatients(ctx, prefix, searchLimit)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, len(users))
	for i, u := range users {
		profiles[i] = u.Profile()
	}
	return profiles, nil
}
