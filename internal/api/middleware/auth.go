package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/api/metrics"
	"github.com/99minutos/identity-system/internal/core/domain"
	"github.com/99minutos/identity-system/internal/core/ports"
)

const userKey = "current_user"

// Auth resolves the bearer token into the current user and stores it in the
// echo context. Failures are returned to the HTTP error handler.
func Auth(sessions ports.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
			}

			user, err := sessions.Resolve(c.Request().Context(), parts[1])
			if err != nil {
				metrics.TokenValidationsTotal.WithLabelValues(validationResult(err)).Inc()
				return err
			}
			metrics.TokenValidationsTotal.WithLabelValues("valid").Inc()

			SetUser(c, user)
			return next(c)
		}
	}
}

func validationResult(err error) string {
	if errors.Is(err, domain.ErrInactiveUser) {
		return "inactive"
	}
	return "invalid"
}

// SetUser stores the resolved user in c.
func SetUser(c echo.Context, user *domain.User) {
	c.Set(userKey, user)
}

// CurrentUser returns the user stored by Auth.
func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(userKey).(*domain.User)
	return user, ok && user != nil
}
