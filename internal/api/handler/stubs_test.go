package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/api/middleware"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

type stubAuthService struct {
	loginFn func(ctx context.Context, username, password string) (string, *domain.User, error)
}

func (s *stubAuthService) Authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	_, u, err := s.loginFn(ctx, username, password)
	return u, err
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, username, password)
}

type stubResetService struct {
	requestFn func(ctx context.Context, email string) error
	confirmFn func(ctx context.Context, token, newPassword string) error
}

func (s *stubResetService) RequestReset(ctx context.Context, email string) error {
	return s.requestFn(ctx, email)
}

func (s *stubResetService) ConfirmReset(ctx context.Context, token, newPassword string) error {
	return s.confirmFn(ctx, token, newPassword)
}

// stubAccountService embeds the interface so each test only sets what it calls.
type stubAccountService struct {
	ports.AccountService
	registerFn       func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
	createFn         func(ctx context.Context, in ports.CreateUserInput) (*domain.User, error)
	getFn            func(ctx context.Context, actor *domain.User, id string) (*domain.User, error)
	listFn           func(ctx context.Context, in ports.ListUsersInput) (*ports.ListUsersResult, error)
	updateUserFn     func(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error)
	updateMeFn       func(ctx context.Context, actor *domain.User, in ports.UpdateMeInput) (*domain.User, error)
	changePasswordFn func(ctx context.Context, actor *domain.User, current, next string) error
	deleteMeFn       func(ctx context.Context, actor *domain.User) error
	deleteUserFn     func(ctx context.Context, actor *domain.User, id string) error
}

func (s *stubAccountService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAccountService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	return s.createFn(ctx, in)
}

func (s *stubAccountService) Get(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	return s.getFn(ctx, actor, id)
}

func (s *stubAccountService) List(ctx context.Context, in ports.ListUsersInput) (*ports.ListUsersResult, error) {
	return s.listFn(ctx, in)
}

func (s *stubAccountService) UpdateUser(ctx context.Context, id string, patch domain.UserPatch) (*domain.User, error) {
	return s.updateUserFn(ctx, id, patch)
}

func (s *stubAccountService) UpdateMe(ctx context.Context, actor *domain.User, in ports.UpdateMeInput) (*domain.User, error) {
	return s.updateMeFn(ctx, actor, in)
}

func (s *stubAccountService) ChangePassword(ctx context.Context, actor *domain.User, current, next string) error {
	return s.changePasswordFn(ctx, actor, current, next)
}

func (s *stubAccountService) DeleteMe(ctx context.Context, actor *domain.User) error {
	return s.deleteMeFn(ctx, actor)
}

func (s *stubAccountService) DeleteUser(ctx context.Context, actor *domain.User, id string) error {
	return s.deleteUserFn(ctx, actor, id)
}

// newRequest builds an echo context with the validator registered and,
// when user is non-nil, the current user already resolved.
func newRequest(method, target, contentType string, body io.Reader, user *domain.User) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		middleware.SetUser(c, user)
	}
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	return resp
}

func expectStatus(t *testing.T, err error, code int) {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != code {
		t.Fatalf("expected HTTP %d, got %v", code, err)
	}
}
