package ports

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// RegisterInput is the self-registration payload.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// CreateUserInput is the administrative creation payload. RoleID nil selects
// the default "user" role.
type CreateUserInput struct {
	Username    string
	Email       string
	Password    string
	FullName    string
	IsActive    bool
	IsSuperuser bool
	RoleID      *string
}

// UpdateMeInput is the subset of fields a user may change on their own account.
type UpdateMeInput struct {
	Username *string
	Email    *string
	FullName *string
}

// ListUsersInput pages the user listing.
type ListUsersInput struct {
	Skip  int
	Limit int
}

// ListUsersResult is one page of users plus the total count.
type ListUsersResult struct {
	Items []*domain.User
	Count int64
}

// AccountService manages the account lifecycle.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Create(ctx context.Context, in CreateUserInput) (*domain.User, error)
	Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error)
	List(ctx context.Context, in ListUsersInput) (*ListUsersResult, error)
	Update(ctx context.Context, existing *domain.User, patch domain.UserPatch) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	UpdateMe(ctx context.Context, actor *domain.User, in UpdateMeInput) (*domain.User, error)
	ChangePassword(ctx context.Context, actor *domain.User, currentPassword, newPassword string) error
	DeleteMe(ctx context.Context, actor *domain.User) error
	DeleteUser(ctx context.Context, actor *domain.User, id string) error
}

// PasswordResetService runs the e-mail based password reset.
type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ConfirmReset(ctx context.Context, token, newPassword string) error
}
