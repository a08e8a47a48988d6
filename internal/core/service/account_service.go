package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

// AccountService creates, updates and deletes user accounts.
type AccountService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	hasher ports.PasswordHasher
	log    zerolog.Logger
	now    func() time.Time
}

// NewAccountService creates an AccountService. Role lookups go through roles,
// so a cached RoleRepository can be passed in.
func NewAccountService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	hasher ports.PasswordHasher,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		users:  users,
		roles:  roles,
		hasher: hasher,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Register is the self-service sign-up path: always an active, non-super
// account with the default role.
func (s *AccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.create(ctx, ports.CreateUserInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
		FullName: in.FullName,
		IsActive: true,
	})
}

// Create is the administrative path; it may grant superuser status and pick
// an explicit role.
func (s *AccountService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return s.create(ctx, in)
}

func (s *AccountService) create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	if err := s.ensureUnique(ctx, domain.UserByUsername, in.Username, ""); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, domain.UserByEmail, in.Email, ""); err != nil {
		return nil, err
	}

	roleID, err := s.resolveRole(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		IsActive:     in.IsActive,
		IsSuperuser:  in.IsSuperuser,
		RoleID:       roleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role_id", roleID).Bool("superuser", user.IsSuperuser).Msg("user created")
	return user, nil
}

// Get returns the user with id. Users may always read themselves; reading
// anybody else requires superuser status.
func (s *AccountService) Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if actor != nil && actor.ID == id {
		return actor, nil
	}
	if actor == nil || !actor.IsSuperuser {
		return nil, domain.ErrForbidden
	}
	return s.findByID(ctx, id)
}

// List returns one page of users. Limit is capped at maxListLimit.
func (s *AccountService) List(ctx context.Context, in ports.ListUsersInput) (*ports.ListUsersResult, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	skip := in.Skip
	if skip < 0 {
		skip = 0
	}

	users, total, err := s.users.List(ctx, ports.ListQuery{Offset: skip, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &ports.ListUsersResult{Items: users, Count: total}, nil
}

// Update applies patch to existing. All checks run before the write, so a
// conflict leaves the stored record untouched.
func (s *AccountService) Update(ctx context.Context, existing *domain.User, patch domain.UserPatch) (*domain.User, error) {
	updated := *existing

	if patch.Username != nil && *patch.Username != existing.Username {
		if err := s.ensureUnique(ctx, domain.UserByUsername, *patch.Username, existing.ID); err != nil {
			return nil, err
		}
		updated.Username = *patch.Username
	}
	if patch.Email != nil && *patch.Email != existing.Email {
		if err := s.ensureUnique(ctx, domain.UserByEmail, *patch.Email, existing.ID); err != nil {
			return nil, err
		}
		updated.Email = *patch.Email
	}
	if patch.RoleID != nil && *patch.RoleID != existing.RoleID {
		roleID, err := s.resolveRole(ctx, patch.RoleID)
		if err != nil {
			return nil, err
		}
		updated.RoleID = roleID
	}
	if patch.FullName != nil {
		updated.FullName = *patch.FullName
	}
	if patch.IsActive != nil {
		updated.IsActive = *patch.IsActive
	}
	if patch.IsSuperuser != nil {
		updated.IsSuperuser = *patch.IsSuperuser
	}
	if patch.Password != nil {
		hash, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		updated.PasswordHash = hash
	}

	if patch.Empty() {
		return &updated, nil
	}

	updated.UpdatedAt = s.now()
	if err := s.users.Update(ctx, &updated); err != nil {
		if errors.Is(err, ports.ErrDuplicateKey) {
			return nil, domain.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.log.Info().Str("user_id", updated.ID).Msg("user updated")
	return &updated, nil
}

// UpdateUser is the administrative update by id.
func (s *AccountService) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	existing, err := s.findByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Update(ctx, existing, patch)
}

// UpdateMe lets a user change their own username, e-mail and full name.
func (s *AccountService) UpdateMe(ctx context.Context, actor *domain.User, in ports.UpdateMeInput) (*domain.User, error) {
	return s.Update(ctx, actor, domain.UserPatch{
		Username: in.Username,
		Email:    in.Email,
		FullName: in.FullName,
	})
}

// ChangePassword requires the current password and refuses a no-op change.
func (s *AccountService) ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error {
	if !s.hasher.Verify(currentPassword, actor.PasswordHash) {
		return domain.ErrInvalidPassword
	}
	if currentPassword == newPassword {
		return domain.ErrIncorrectPassword
	}

	if _, err := s.Update(ctx, actor, domain.UserPatch{Password: &newPassword}); err != nil {
		return err
	}
	s.log.Info().Str("user_id", actor.ID).Msg("password changed")
	return nil
}

// DeleteMe removes the actor's own account. Superusers cannot delete themselves.
func (s *AccountService) DeleteMe(ctx context.Context, actor *domain.User) error {
	if actor.IsSuperuser {
		return domain.ErrCannotDeleteSuperuser
	}
	if err := s.users.Delete(ctx, actor.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info().Str("user_id", actor.ID).Msg("user deleted own account")
	return nil
}

// DeleteUser is the administrative delete. An administrator cannot remove
// their own account through it.
func (s *AccountService) DeleteUser(ctx context.Context, actor *domain.User, id string) error {
	target, err := s.findByID(ctx, id)
	if err != nil {
		return err
	}
	if target.ID == actor.ID {
		return domain.ErrCannotDeleteSuperuser
	}
	if err := s.users.Delete(ctx, target.ID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info().Str("user_id", target.ID).Str("actor_id", actor.ID).Msg("user deleted")
	return nil
}

func (s *AccountService) findByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.Find(ctx, domain.UserByID, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// ensureUnique fails when another user than selfID already holds value.
func (s *AccountService) ensureUnique(ctx context.Context, key domain.UserKey, value, selfID string) error {
	other, err := s.users.Find(ctx, key, value)
	if err != nil {
		return fmt.Errorf("check %s: %w", key, err)
	}
	if other != nil && other.ID != selfID {
		return domain.UserAlreadyExists(string(key))
	}
	return nil
}

// resolveRole returns the id of the requested role, or of the default role
// when roleID is nil.
func (s *AccountService) resolveRole(ctx context.Context, roleID *string) (string, error) {
	key, value := domain.RoleByName, domain.RoleUser
	if roleID != nil {
		key, value = domain.RoleByID, *roleID
	}

	role, err := s.roles.Find(ctx, key, value)
	if err != nil {
		return "", fmt.Errorf("resolve role: %w", err)
	}
	if role == nil {
		return "", domain.ErrRoleNotFound
	}
	return role.ID, nil
}
