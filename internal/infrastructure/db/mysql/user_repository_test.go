package mysql

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

var userRowColumns = []string{
	"id", "username", "email", "full_name", "password_hash",
	"is_active", "is_superuser", "role_id", "created_at", "updated_at",
}

// setupUserTestRepository creates a user repository with a mock database
func setupUserTestRepository(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewUserRepository(db), mock
}

func sampleUser() *domain.User {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.User{
		ID:           "7b6f1c1e-0000-4000-8000-000000000001",
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice",
		PasswordHash: "$2a$12$hash",
		IsActive:     true,
		RoleID:       "role-user",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func userRow(u *domain.User) *sqlmock.Rows {
	return sqlmock.NewRows(userRowColumns).AddRow(
		u.ID, u.Username, u.Email, u.FullName, u.PasswordHash,
		u.IsActive, u.IsSuperuser, u.RoleID, u.CreatedAt, u.UpdatedAt,
	)
}

func TestUserRepository_Create(t *testing.T) {
	u := sampleUser()

	tests := []struct {
		name      string
		setupMock func(sqlmock.Sqlmock)
		wantErr   error
	}{
		{
			name: "success",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WithArgs(u.ID, u.Username, u.Email, u.FullName, u.PasswordHash,
						u.IsActive, u.IsSuperuser, u.RoleID, u.CreatedAt, u.UpdatedAt).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "duplicate email",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'alice@example.com' for key 'uq_users_email'"})
			},
			wantErr: ports.ErrDuplicateKey,
		},
		{
			name: "database error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO users`).
					WillReturnError(errors.New("database error"))
			},
			wantErr: errors.New("database error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupUserTestRepository(t)
			tt.setupMock(mock)

			err := repo.Create(context.Background(), u)

			switch {
			case tt.wantErr == nil:
				assert.NoError(t, err)
			case errors.Is(tt.wantErr, ports.ErrDuplicateKey):
				assert.ErrorIs(t, err, ports.ErrDuplicateKey)
			default:
				assert.ErrorContains(t, err, tt.wantErr.Error())
				assert.NotErrorIs(t, err, ports.ErrDuplicateKey)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Find(t *testing.T) {
	u := sampleUser()

	t.Run("by username", func(t *testing.T) {
		repo, mock := setupUserTestRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE username = ?`)).
			WithArgs("alice").
			WillReturnRows(userRow(u))

		got, err := repo.Find(context.Background(), domain.UserByUsername, "alice")

		require.NoError(t, err)
		assert.Equal(t, u, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by email", func(t *testing.T) {
		repo, mock := setupUserTestRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = ?`)).
			WithArgs("alice@example.com").
			WillReturnRows(userRow(u))

		got, err := repo.Find(context.Background(), domain.UserByEmail, "alice@example.com")

		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := setupUserTestRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE id = ?`)).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(userRowColumns))

		got, err := repo.Find(context.Background(), domain.UserByID, "missing")

		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("unsupported key", func(t *testing.T) {
		repo, _ := setupUserTestRepository(t)

		_, err := repo.Find(context.Background(), domain.UserKey("password_hash"), "x")

		assert.Error(t, err)
	})

	t.Run("database error", func(t *testing.T) {
		repo, mock := setupUserTestRepository(t)
		mock.ExpectQuery(`FROM users`).WillReturnError(errors.New("connection lost"))

		got, err := repo.Find(context.Background(), domain.UserByID, "x")

		assert.Nil(t, got)
		assert.ErrorContains(t, err, "connection lost")
	})
}

func TestUserRepository_Update(t *testing.T) {
	u := sampleUser()

	t.Run("success", func(t *testing.T) {
		repo, mock := setupUserTestRepository(t)
		mock.ExpectExec(`UPDATE users`).
			WithArgs(u.Username, u.Email, u.FullName, u.PasswordHash,
				u.IsActive, u.IsSuperuser, u.RoleID, u.UpdatedAt, u.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Update(context.Background(), u))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate username", func(t *testing.T) {
		repo, mock := setupUserTestRepository(t)
		mock.ExpectExec(`UPDATE users`).
			WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'uq_users_username'"})

		assert.ErrorIs(t, repo.Update(context.Background(), u), ports.ErrDuplicateKey)
	})
}

func TestUserRepository_Delete(t *testing.T) {
	repo, mock := setupUserTestRepository(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM users WHERE id = ?`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_List(t *testing.T) {
	u := sampleUser()
	repo, mock := setupUserTestRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at, id LIMIT ? OFFSET ?`)).
		WithArgs(1, 2).
		WillReturnRows(userRow(u))

	users, total, err := repo.List(context.Background(), ports.ListQuery{Offset: 2, Limit: 1})

	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}
