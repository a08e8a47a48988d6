package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/identity-system/internal/core/ports"
)

// RequireSuperuser lets the request through only when the user stored by
// Auth is a superuser. It must run after Auth.
func RequireSuperuser(sessions ports.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, _ := CurrentUser(c)
			if err := sessions.RequireSuperuser(user); err != nil {
				return err
			}
			return next(c)
		}
	}
}
