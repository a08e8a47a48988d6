package ports

import (
	"context"
	"errors"

	"github.com/99minutos/identity-system/internal/core/domain"
)

var (
	// ErrDuplicateKey is returned by Create/Update when a unique constraint
	// of the underlying store rejects the write.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrRoleInUse is returned when deleting a role still referenced by a user.
	ErrRoleInUse = errors.New("role is referenced by users")
)

// ListQuery pages through a collection in insertion order.
type ListQuery struct {
	Offset int
	Limit  int
}

// Repository is the CRUD contract every entity store implements. K restricts
// lookups to the unique fields declared for the entity.
type Repository[T any, K ~string] interface {
	Create(ctx context.Context, entity *T) error
	// Find returns nil, nil when no record matches.
	Find(ctx context.Context, key K, value string) (*T, error)
	// Update replaces the record identified by the entity ID.
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, q ListQuery) ([]*T, int64, error)
}

// UserRepository persists users.
type UserRepository interface {
	Repository[domain.User, domain.UserKey]
}

// RoleRepository persists roles.
type RoleRepository interface {
	Repository[domain.Role, domain.RoleKey]
}

// Transactor scopes a unit of work. fn receives a context carrying the
// transactional handle; returning an error rolls the work back.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
