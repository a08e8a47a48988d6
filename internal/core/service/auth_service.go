package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// dummyPassword is hashed once per AuthService so lookups of unknown users
// spend the same bcrypt time as a real comparison.
const dummyPassword = "identity-system-dummy-password"

// AuthService implements credential verification and login.
type AuthService struct {
	users     ports.UserRepository
	hasher    ports.PasswordHasher
	tokens    ports.TokenCodec
	accessTTL time.Duration
	dummyHash string
	log       zerolog.Logger
}

// NewAuthService hashes the dummy password once up front. accessTTL <= 0
// selects eight days.
func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenCodec,
	accessTTL time.Duration,
	log zerolog.Logger,
) (*AuthService, error) {
	if accessTTL <= 0 {
		accessTTL = 8 * 24 * time.Hour
	}
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		accessTTL: accessTTL,
		dummyHash: dummy,
		log:       log,
	}, nil
}

// Authenticate returns the user owning username when password matches.
// An unknown username and a wrong password both yield ErrNotAuthenticated.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrNotAuthenticated
	}

	user, err := s.users.Find(ctx, domain.UserByUsername, username)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if user == nil {
		s.hasher.Verify(password, s.dummyHash)
		return nil, domain.ErrNotAuthenticated
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, domain.ErrNotAuthenticated
	}
	return user, nil
}

// Login authenticates the pair, rejects inactive accounts and issues an
// access token for the user.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return "", nil, err
	}
	if !user.IsActive {
		return "", nil, domain.ErrInactiveUser
	}

	token, err := s.tokens.Issue(ports.TokenClaims{
		Subject: user.Username,
		Purpose: ports.TokenPurposeAccess,
	}, s.accessTTL)
	if err != nil {
		return "", nil, fmt.Errorf("login: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("access token issued")
	return token, user, nil
}
