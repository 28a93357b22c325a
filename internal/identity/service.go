package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/studypal/server/internal/domain"
	"github.com/studypal/server/internal/store"
)

// Validation and credential errors surfaced to the API layer.
var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

// Service implements account registration and login on top of the
// profile repository.
type Service struct {
	repo store.Repository
	auth *Auth
	now  func() time.Time
}

// NewService creates an identity service.
func NewService(repo store.Repository, auth *Auth) *Service {
	return &Service{
		repo: repo,
		auth: auth,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// AuthResult is returned on successful register or login.
type AuthResult struct {
	Token   string          `json:"token"`
	Profile *domain.Profile `json:"profile"`
}

// Register creates a new account. Email, password and a valid grade are
// required; phone is optional.
func (s *Service) Register(ctx context.Context, email, password, grade, phone string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrInvalidInput)
	}
	if !domain.ValidGrade(grade) {
		return nil, fmt.Errorf("%w: grade must be 10, 11 or 12", ErrInvalidInput)
	}

	existing, err := s.repo.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	profile := &domain.Profile{
		ID:        uuid.NewString(),
		Email:     email,
		PassHash:  hash,
		Phone:     strings.TrimSpace(phone),
		Grade:     grade,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateProfile(ctx, profile); err != nil {
		return nil, err
	}

	token, err := s.auth.SignToken(profile.ID, profile.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Profile: profile}, nil
}

// Login verifies credentials and mints a bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || strings.TrimSpace(password) == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrInvalidInput)
	}

	profile, err := s.repo.GetProfileByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(profile.PassHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.auth.SignToken(profile.ID, profile.Email)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, Profile: profile}, nil
}
