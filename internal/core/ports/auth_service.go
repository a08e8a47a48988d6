package ports

import (
	"context"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// AuthService verifies username/password pairs and issues bearer tokens.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
}

// SessionService resolves a bearer token into the acting user.
type SessionService interface {
	Resolve(ctx context.Context, token string) (*domain.User, error)
	RequireSuperuser(user *domain.User) error
}
