package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/identity-system/internal/api"
	"github.com/99minutos/identity-system/internal/api/handler"
	"github.com/99minutos/identity-system/internal/core/ports"
	"github.com/99minutos/identity-system/internal/core/security"
	"github.com/99minutos/identity-system/internal/core/service"
	"github.com/99minutos/identity-system/internal/infrastructure/config"
	mongostore "github.com/99minutos/identity-system/internal/infrastructure/db/mongo"
	mysqlstore "github.com/99minutos/identity-system/internal/infrastructure/db/mysql"
	rediscache "github.com/99minutos/identity-system/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-system/internal/infrastructure/mail"
	"github.com/99minutos/identity-system/internal/infrastructure/queue"
	"github.com/99minutos/identity-system/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// store bundles the persistence adapters of the selected driver.
type store struct {
	users      ports.UserRepository
	roles      ports.RoleRepository
	transactor ports.Transactor
	inTx       func(ctx context.Context) bool
	check      handler.Check
	close      func(ctx context.Context) error
}

// @title                       Identity API
// @version                     1.0
// @description                 User accounts, login and password recovery.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		l := logger.Init(logger.Options{Level: "info"})
		l.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env.IsDebug(),
		Service: cfg.ProjectName,
	})
	log.Info().Str("env", string(cfg.Env)).Str("store", cfg.Store.Driver).Msg("starting identity service")

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("service stopped with error")
	}
	log.Info().Msg("service stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("closing store")
		}
	}()

	checks := map[string]handler.Check{cfg.Store.Driver: st.check}

	roles := st.roles
	if cfg.Redis.Enabled {
		client, err := rediscache.Connect(ctx, rediscache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		roles = rediscache.NewRoleCache(roles, client, cfg.Redis.RoleTTL, st.inTx, logger.Component("role_cache"))
		checks["redis"] = rediscache.Ping(client)
	}

	hasher, err := security.NewHasher(cfg.Security.HashScheme, cfg.Security.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := security.NewTokenCodec([]byte(cfg.Security.SecretKey), cfg.Security.Algorithm)
	if err != nil {
		return err
	}

	var mailer ports.EmailSender = mail.Disabled{}
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	if cfg.SMTP.EmailsEnabled() {
		var sender ports.EmailSender = mail.NewSender(mail.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.FromEmail,
		}, logger.Component("mail"))
		mailer = sender
		if cfg.SMTP.Workers > 0 {
			dispatcher := queue.NewDispatcher(cfg.SMTP.Workers, sender, logger.Component("mail_dispatcher"))
			dispatcher.Start(workersCtx)
			defer func() {
				stopWorkers()
				dispatcher.Wait()
			}()
			mailer = dispatcher
		}
	} else {
		log.Warn().Msg("SMTP not configured, password recovery e-mails are disabled")
	}

	authService, err := service.NewAuthService(st.users, hasher, tokens, cfg.Security.AccessTokenTTL(), logger.Component("auth"))
	if err != nil {
		return err
	}
	sessions := service.NewSessionService(st.users, tokens)
	accounts := service.NewAccountService(st.users, roles, hasher, logger.Component("accounts"))
	resets := service.NewResetService(st.users, hasher, tokens, mailer, service.ResetOptions{
		Project:      cfg.ProjectName,
		FrontendHost: cfg.FrontendURL,
		TokenTTL:     cfg.Security.ResetTokenTTL(),
	}, logger.Component("reset"))

	err = st.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := accounts.EnsureRoles(ctx); err != nil {
			return err
		}
		return accounts.EnsureSuperuser(ctx, service.SuperuserCredentials{
			Username: cfg.Superuser.Username,
			Email:    cfg.Superuser.Email,
			Password: cfg.Superuser.Password,
		})
	})
	if err != nil {
		return err
	}

	e := api.NewRouter(api.Dependencies{
		Log:         logger.Component("http"),
		Prefix:      cfg.APIPrefix,
		ExposeDocs:  cfg.Env.IsDebug(),
		CORSOrigins: cfg.CORSOrigins,
		Auth:        authService,
		Sessions:    sessions,
		Accounts:    accounts,
		Resets:      resets,
		Transactor:  st.transactor,
		Checks:      checks,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return nil, err
		}
		return &store{
			users:      mongostore.NewUserRepository(db),
			roles:      mongostore.NewRoleRepository(db),
			transactor: mongostore.NewTransactor(client),
			inTx:       mongostore.InTransaction,
			check:      func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:      client.Disconnect,
		}, nil
	default:
		db, err := mysqlstore.Connect(ctx, mysqlstore.Config{DSN: cfg.MySQL.DSN})
		if err != nil {
			return nil, err
		}
		if err := mysqlstore.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &store{
			users:      mysqlstore.NewUserRepository(db),
			roles:      mysqlstore.NewRoleRepository(db),
			transactor: mysqlstore.NewTransactor(db),
			inTx:       mysqlstore.InTransaction,
			check:      db.PingContext,
			close:      func(context.Context) error { return db.Close() },
		}, nil
	}
}
