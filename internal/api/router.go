package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/identity-system/docs"
	"github.com/99minutos/identity-system/internal/api/handler"
	"github.com/99minutos/identity-system/internal/api/middleware"
	"github.com/99minutos/identity-system/internal/core/ports"
)

// Dependencies is everything the router wires into handlers.
type Dependencies struct {
	Log         zerolog.Logger
	Prefix      string
	ExposeDocs  bool
	CORSOrigins []string

	Auth       ports.AuthService
	Sessions   ports.SessionService
	Accounts   ports.AccountService
	Resets     ports.PasswordResetService
	Transactor ports.Transactor
	Checks     map[string]handler.Check
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Log)
	e.Validator = handler.NewValidator()

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Log))
	e.Use(echoprometheus.NewMiddleware("identity"))
	if len(deps.CORSOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:     deps.CORSOrigins,
			AllowCredentials: true,
			AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		}))
	}

	e.GET("/metrics", echoprometheus.NewHandler())
	if deps.ExposeDocs {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	// --- Health probes (no auth, no transaction) ---
	e.GET("/health/ready", handler.NewReadinessHandler(deps.Checks).Readiness)
	e.GET(deps.Prefix+"/utils/health-check", handler.NewHealthHandler().Liveness)

	v1 := e.Group(deps.Prefix, middleware.Transaction(deps.Transactor))

	authn := middleware.Auth(deps.Sessions)
	superuser := middleware.RequireSuperuser(deps.Sessions)

	// --- Login & password recovery ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Resets)
	v1.POST("/auth/login/access-token", authHandler.Login)
	v1.POST("/auth/login/test-token", authHandler.TestToken, authn)
	v1.POST("/auth/password-recovery/:email", authHandler.RecoverPassword)
	v1.POST("/auth/reset-password", authHandler.ResetPassword)

	// --- Users ---
	userHandler := handler.NewUserHandler(deps.Accounts)
	v1.POST("/users/signup", userHandler.Signup)
	v1.GET("/users/me", userHandler.ReadMe, authn)
	v1.PATCH("/users/me", userHandler.UpdateMe, authn)
	v1.DELETE("/users/me", userHandler.DeleteMe, authn)
	v1.PATCH("/users/me/password", userHandler.UpdatePasswordMe, authn)
	v1.GET("/users", userHandler.List, authn, superuser)
	v1.POST("/users", userHandler.Create, authn, superuser)
	v1.GET("/users/:id", userHandler.Get, authn)
	v1.PATCH("/users/:id", userHandler.Update, authn, superuser)
	v1.DELETE("/users/:id", userHandler.Delete, authn, superuser)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURIPath:   true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("path", v.URIPath).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
