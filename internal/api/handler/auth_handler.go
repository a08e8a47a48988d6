package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

type AuthHandler struct {
	authService  ports.AuthService
	resetService ports.PasswordResetService
}

func NewAuthHandler(authService ports.AuthService, resetService ports.PasswordResetService) *AuthHandler {
	return &AuthHandler{authService: authService, resetService: resetService}
}

// Login authenticates a username/password form and returns a bearer token.
//
// @Summary      OAuth2 compatible token login
// @Tags         login
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      200       {object}  tokenResponse
// @Failure      400       {object}  errorResponse
// @Failure      401       {object}  errorResponse
// @Router       /auth/login/access-token [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	token, _, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	return c.JSON(http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInactiveUser):
		return "inactive"
	case errors.Is(err, domain.ErrNotAuthenticated):
		return "rejected"
	default:
		return "error"
	}
}

// TestToken echoes the user owning the bearer token.
//
// @Summary      Test access token
// @Tags         login
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/login/test-token [post]
func (h *AuthHandler) TestToken(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// RecoverPassword mails a reset link to the account owning :email.
//
// @Summary      Password recovery
// @Tags         login
// @Produce      json
// @Param        email  path      string  true  "Account e-mail"
// @Success      200    {object}  messageResponse
// @Failure      404    {object}  errorResponse
// @Failure      503    {object}  errorResponse
// @Router       /auth/password-recovery/{email} [post]
func (h *AuthHandler) RecoverPassword(c echo.Context) error {
	err := h.resetService.RequestReset(c.Request().Context(), c.Param("email"))
	metrics.PasswordResetsTotal.WithLabelValues("request", resultLabel(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password recovery email sent"})
}

// ResetPassword sets a new password using a mailed reset token.
//
// @Summary      Reset password
// @Tags         login
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.resetService.ConfirmReset(c.Request().Context(), req.Token, req.NewPassword)
	metrics.PasswordResetsTotal.WithLabelValues("confirm", resultLabel(err)).Inc()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Password updated successfully"})
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
