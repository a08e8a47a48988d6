package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/internal/core/security"
)

// ---------------------------------------------------------------------------
// In-memory repositories
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	users   []*domain.User
	findErr error
	writes  int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func userField(u *domain.User, key domain.UserKey) string {
	switch key {
	case domain.UserByID:
		return u.ID
	case domain.UserByUsername:
		return u.Username
	case domain.UserByEmail:
		return u.Email
	}
	return ""
}

func (r *stubUserRepo) conflicts(u *domain.User) bool {
	for _, other := range r.users {
		if other.ID == u.ID {
			continue
		}
		if other.Username == u.Username || other.Email == u.Email {
			return true
		}
	}
	return false
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) error {
	if r.conflicts(u) {
		return ports.ErrDuplicateKey
	}
	r.writes++
	r.users = append(r.users, cloneUser(u))
	return nil
}

func (r *stubUserRepo) Find(_ context.Context, key domain.UserKey, value string) (*domain.User, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if userField(u, key) == value {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *domain.User) error {
	if r.conflicts(u) {
		return ports.ErrDuplicateKey
	}
	for i, existing := range r.users {
		if existing.ID == u.ID {
			r.writes++
			r.users[i] = cloneUser(u)
			return nil
		}
	}
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id string) error {
	for i, u := range r.users {
		if u.ID == id {
			r.writes++
			r.users = append(r.users[:i], r.users[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *stubUserRepo) List(_ context.Context, q ports.ListQuery) ([]*domain.User, int64, error) {
	total := int64(len(r.users))
	if q.Offset >= len(r.users) {
		return []*domain.User{}, total, nil
	}
	end := q.Offset + q.Limit
	if end > len(r.users) {
		end = len(r.users)
	}
	out := make([]*domain.User, 0, end-q.Offset)
	for _, u := range r.users[q.Offset:end] {
		out = append(out, cloneUser(u))
	}
	return out, total, nil
}

type stubRoleRepo struct {
	roles []*domain.Role
}

func (r *stubRoleRepo) Create(_ context.Context, role *domain.Role) error {
	for _, existing := range r.roles {
		if existing.Name == role.Name {
			return ports.ErrDuplicateKey
		}
	}
	clone := *role
	r.roles = append(r.roles, &clone)
	return nil
}

func (r *stubRoleRepo) Find(_ context.Context, key domain.RoleKey, value string) (*domain.Role, error) {
	for _, role := range r.roles {
		if (key == domain.RoleByID && role.ID == value) || (key == domain.RoleByName && role.Name == value) {
			clone := *role
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *stubRoleRepo) Update(context.Context, *domain.Role) error { return nil }

func (r *stubRoleRepo) Delete(_ context.Context, id string) error {
	for i, role := range r.roles {
		if role.ID == id {
			r.roles = append(r.roles[:i], r.roles[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *stubRoleRepo) List(context.Context, ports.ListQuery) ([]*domain.Role, int64, error) {
	return r.roles, int64(len(r.roles)), nil
}

func (r *stubRoleRepo) countByName(name string) int {
	n := 0
	for _, role := range r.roles {
		if role.Name == name {
			n++
		}
	}
	return n
}

type stubMailer struct {
	err  error
	sent []sentMail
}

type sentMail struct {
	To, Subject, Body string
}

func (m *stubMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	users    *stubUserRepo
	roles    *stubRoleRepo
	hasher   *security.Hasher
	tokens   *security.TokenCodec
	mailer   *stubMailer
	clock    time.Time
	accounts *AccountService
	auth     *AuthService
	sessions *SessionService
	resets   *ResetService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	hasher, err := security.NewHasher(security.SchemeBcrypt, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}

	f := &fixture{
		users:  newStubUserRepo(),
		roles:  &stubRoleRepo{},
		hasher: hasher,
		mailer: &stubMailer{},
		clock:  time.Now(),
	}

	f.tokens, err = security.NewTokenCodec([]byte("secret"), "HS256", security.WithClock(func() time.Time { return f.clock }))
	if err != nil {
		t.Fatalf("token codec: %v", err)
	}

	f.accounts = NewAccountService(f.users, f.roles, hasher, zerolog.Nop())
	f.auth, err = NewAuthService(f.users, hasher, f.tokens, time.Hour, zerolog.Nop())
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	f.sessions = NewSessionService(f.users, f.tokens)
	f.resets = NewResetService(f.users, hasher, f.tokens, f.mailer, ResetOptions{
		Project:      "identity",
		FrontendHost: "http://localhost:5173",
		TokenTTL:     48 * time.Hour,
	}, zerolog.Nop())

	if err := f.accounts.EnsureRoles(context.Background()); err != nil {
		t.Fatalf("EnsureRoles: %v", err)
	}
	return f
}

func (f *fixture) role(t *testing.T, name string) *domain.Role {
	t.Helper()
	role, _ := f.roles.Find(context.Background(), domain.RoleByName, name)
	if role == nil {
		t.Fatalf("role %s missing", name)
	}
	return role
}

func (f *fixture) register(t *testing.T, username, email, password string) *domain.User {
	t.Helper()
	user, err := f.accounts.Register(context.Background(), ports.RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return user
}

func (f *fixture) stored(t *testing.T, id string) *domain.User {
	t.Helper()
	u, _ := f.users.Find(context.Background(), domain.UserByID, id)
	return u
}

func expectKind(t *testing.T, err error, want *domain.Error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want.Kind, err)
	}
}

func ptr[T any](v T) *T { return &v }
