package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

var roleKeyColumns = map[domain.RoleKey]string{
	domain.RoleByID:   "id",
	domain.RoleByName: "name",
}

// RoleRepository implements ports.RoleRepository.
type RoleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `INSERT INTO roles (id, name) VALUES (?, ?)`, role.ID, role.Name)
	if err != nil {
		return fmt.Errorf("create role: %w", translate(err))
	}
	return nil
}

func (r *RoleRepository) Find(ctx context.Context, key domain.RoleKey, value string) (*domain.Role, error) {
	column, ok := roleKeyColumns[key]
	if !ok {
		return nil, fmt.Errorf("find role: unsupported key %q", key)
	}

	role := &domain.Role{}
	err := conn(ctx, r.db).
		QueryRowContext(ctx, `SELECT id, name FROM roles WHERE `+column+` = ? LIMIT 1`, value).
		Scan(&role.ID, &role.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role by %s: %w", key, err)
	}
	return role, nil
}

func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE roles SET name = ? WHERE id = ?`, role.Name, role.ID)
	if err != nil {
		return fmt.Errorf("update role: %w", translate(err))
	}
	return nil
}

// Delete fails with ports.ErrRoleInUse while users reference the role.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	if _, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM roles WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete role: %w", translate(err))
	}
	return nil
}

func (r *RoleRepository) List(ctx context.Context, q ports.ListQuery) ([]*domain.Role, int64, error) {
	db := conn(ctx, r.db)

	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM roles`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count roles: %w", err)
	}

	rows, err := db.QueryContext(ctx, `SELECT id, name FROM roles ORDER BY name LIMIT ? OFFSET ?`, q.Limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	var roles []*domain.Role
	for rows.Next() {
		role := &domain.Role{}
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, 0, fmt.Errorf("scan role: %w", err)
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}
	return roles, total, nil
}
