package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// SuperuserCredentials identifies the account created by EnsureSuperuser.
type SuperuserCredentials struct {
	Username string
	Email    string
	Password string
}

// EnsureRoles creates every role of domain.RoleNames that does not exist yet.
func (s *AccountService) EnsureRoles(ctx context.Context) error {
	for _, name := range domain.RoleNames {
		if _, err := s.getOrCreateRole(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (s *AccountService) getOrCreateRole(ctx context.Context, name string) (*domain.Role, error) {
	role, err := s.roles.Find(ctx, domain.RoleByName, name)
	if err != nil {
		return nil, fmt.Errorf("find role %s: %w", name, err)
	}
	if role != nil {
		return role, nil
	}

	role = &domain.Role{ID: uuid.NewString(), Name: name}
	if err := s.roles.Create(ctx, role); err != nil {
		if !errors.Is(err, ports.ErrDuplicateKey) {
			return nil, fmt.Errorf("create role %s: %w", name, err)
		}
		// lost a race with a concurrent bootstrap
		return s.roles.Find(ctx, domain.RoleByName, name)
	}

	s.log.Info().Str("role", name).Str("role_id", role.ID).Msg("role created")
	return role, nil
}

// EnsureSuperuser creates the bootstrap administrator unless an account with
// that username already exists.
func (s *AccountService) EnsureSuperuser(ctx context.Context, creds SuperuserCredentials) error {
	existing, err := s.users.Find(ctx, domain.UserByUsername, creds.Username)
	if err != nil {
		return fmt.Errorf("find superuser: %w", err)
	}
	if existing != nil {
		s.log.Debug().Str("username", creds.Username).Msg("superuser already present")
		return nil
	}

	admin, err := s.roles.Find(ctx, domain.RoleByName, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("find admin role: %w", err)
	}
	if admin == nil {
		return domain.ErrRoleNotFound
	}

	_, err = s.create(ctx, ports.CreateUserInput{
		Username:    creds.Username,
		Email:       creds.Email,
		Password:    creds.Password,
		IsActive:    true,
		IsSuperuser: true,
		RoleID:      &admin.ID,
	})
	return err
}
