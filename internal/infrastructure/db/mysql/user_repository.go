package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

const userColumns = `id, username, email, full_name, password_hash, is_active, is_superuser, role_id, created_at, updated_at`

var userKeyColumns = map[domain.UserKey]string{
	domain.UserByID:       "id",
	domain.UserByUsername: "username",
	domain.UserByEmail:    "email",
}

// UserRepository implements ports.UserRepository.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash,
		u.IsActive, u.IsSuperuser, u.RoleID, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

// Find looks a user up by one of its unique fields.
func (r *UserRepository) Find(ctx context.Context, key domain.UserKey, value string) (*domain.User, error) {
	column, ok := userKeyColumns[key]
	if !ok {
		return nil, fmt.Errorf("find user: unsupported key %q", key)
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = ? LIMIT 1`

	u, err := scanUser(conn(ctx, r.db).QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by %s: %w", key, err)
	}
	return u, nil
}

// Update replaces every mutable column of the user.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET username = ?, email = ?, full_name = ?, password_hash = ?,
		    is_active = ?, is_superuser = ?, role_id = ?, updated_at = ?
		WHERE id = ?
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		u.Username, u.Email, u.FullName, u.PasswordHash,
		u.IsActive, u.IsSuperuser, u.RoleID, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", translate(err))
	}
	return nil
}

// Delete removes the user. Deleting an absent id is not an error.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// List returns one page in creation order plus the total count.
func (r *UserRepository) List(ctx context.Context, q ports.ListQuery) ([]*domain.User, int64, error) {
	db := conn(ctx, r.db)

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, q.Limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.PasswordHash,
		&u.IsActive,
		&u.IsSuperuser,
		&u.RoleID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}
