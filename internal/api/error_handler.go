package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Detail string `json:"detail"`
}

// kindStatus maps every domain.Kind to its HTTP status. Kinds missing from
// the table render as 500.
var kindStatus = map[domain.Kind]int{
	domain.KindNotAuthenticated:      http.StatusUnauthorized,
	domain.KindNotValidCredentials:   http.StatusUnauthorized,
	domain.KindInactiveUser:          http.StatusBadRequest,
	domain.KindForbidden:             http.StatusForbidden,
	domain.KindUserAlreadyExists:     http.StatusConflict,
	domain.KindUserNotFound:          http.StatusNotFound,
	domain.KindRoleNotFound:          http.StatusNotFound,
	domain.KindInvalidPassword:       http.StatusBadRequest,
	domain.KindIncorrectPassword:     http.StatusBadRequest,
	domain.KindCannotDeleteSuperuser: http.StatusForbidden,
	domain.KindInvalidToken:          http.StatusBadRequest,
	domain.KindEmailDisabled:         http.StatusServiceUnavailable,
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to HTTP status codes through kindStatus.
//   - Challenges with WWW-Authenticate on 401.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
		}
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorResponse{Detail: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, validation, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var de *domain.Error
	if errors.As(err, &de) {
		if code, ok := kindStatus[de.Kind]; ok {
			return code, de.Message
		}
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}
