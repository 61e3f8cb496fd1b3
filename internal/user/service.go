package user

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/nekogravitycat/stay-booking-backend/internal/auth"
	"github.com/nekogravitycat/stay-booking-backend/internal/pkg/apperror"
)

const (
	defaultMinPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

// Service registers and authenticates accounts. Guests and hosts share it.
type Service interface {
	Register(ctx context.Context, email, password, displayName string) (*User, error)
	// Login fails with ErrInvalidCredentials for unknown emails and wrong passwords alike.
	Login(ctx context.Context, email, password string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
}

// Options tunes the service. Zero values fall back to defaults and time.Now.
type Options struct {
	MinPasswordLength int
	Now               func() time.Time
}

type service struct {
	repo   Repository
	hasher auth.PasswordHasher

	minPassword int
	now         func() time.Time
}

func NewService(repo Repository, hasher auth.PasswordHasher, opts Options) Service {
	s := &service{
		repo:        repo,
		hasher:      hasher,
		minPassword: opts.MinPasswordLength,
		now:         opts.Now,
	}
	if s.minPassword <= 0 {
		s.minPassword = defaultMinPasswordLength
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

type credentials struct {
	email    string
	password string
}

func newCredentials(email, password string) credentials {
	return credentials{email: strings.ToLower(strings.TrimSpace(email)), password: password}
}

func (c credentials) validateNew(minLength int) error {
	switch {
	case c.email == "":
		return ErrEmailRequired
	case len(c.password) < minLength:
		return ErrPasswordTooShort
	case len(c.password) > maxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

func (s *service) Register(ctx context.Context, email, password, displayName string) (*User, error) {
	cred := newCredentials(email, password)
	if err := cred.validateNew(s.minPassword); err != nil {
		return nil, err
	}

	switch _, err := s.repo.GetByEmail(ctx, cred.email); {
	case err == nil:
		return nil, ErrEmailAlreadyUsed
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	hash, err := s.hasher.Hash(cred.password)
	if err != nil {
		return nil, apperror.Wrap(err, http.StatusInternalServerError, "internal server error")
	}

	u := &User{Email: cred.email, PasswordHash: hash, IsActive: true}
	if name := strings.TrimSpace(displayName); name != "" {
		u.DisplayName = &name
	}

	// Create reports ErrEmailAlreadyUsed when a concurrent registration wins the unique index.
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*User, error) {
	cred := newCredentials(email, password)
	if cred.email == "" || strings.TrimSpace(cred.password) == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.repo.GetByEmail(ctx, cred.email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !u.IsActive {
		return nil, ErrInactiveUser
	}
	if s.hasher.Compare(u.PasswordHash, cred.password) != nil {
		return nil, ErrInvalidCredentials
	}

	at := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, at); err != nil {
		log.Printf("user %s: stamp last login: %v", u.ID, err)
		return u, nil
	}
	u.LastLoginAt = &at
	return u, nil
}

func (s *service) GetByID(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}
