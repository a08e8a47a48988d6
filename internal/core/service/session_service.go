package service

import (
	"context"
	"fmt"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// SessionService turns a bearer token into the current user.
type SessionService struct {
	users  ports.UserRepository
	tokens ports.TokenCodec
}

// NewSessionService creates a SessionService.
func NewSessionService(users ports.UserRepository, tokens ports.TokenCodec) *SessionService {
	return &SessionService{users: users, tokens: tokens}
}

// Resolve walks the token through decode, subject extraction, user lookup and
// the active check. The first three failures are all ErrNotValidCredentials.
func (s *SessionService) Resolve(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, domain.ErrNotValidCredentials
	}
	if claims.Subject == "" || claims.Purpose != ports.TokenPurposeAccess {
		return nil, domain.ErrNotValidCredentials
	}

	user, err := s.users.Find(ctx, domain.UserByUsername, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if user == nil {
		return nil, domain.ErrNotValidCredentials
	}
	if !user.IsActive {
		return nil, domain.ErrInactiveUser
	}
	return user, nil
}

// RequireSuperuser gates privileged operations.
func (s *SessionService) RequireSuperuser(user *domain.User) error {
	if user == nil || !user.IsSuperuser {
		return domain.ErrForbidden
	}
	return nil
}
