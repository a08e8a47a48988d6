// Package mysql is the relational store: users and roles in MySQL, schema
// managed by golang-migrate from embedded files.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/99minutos/identity-system/internal/core/ports"
)

const defaultTimeout = 10 * time.Second

// MySQL error numbers the adapter translates.
const (
	errDuplicateEntry   = 1062
	errRowIsReferenced  = 1451
	errRowIsReferenced2 = 1217
)

// Config captures the settings for opening the connection pool.
type Config struct {
	DSN     string
	Timeout time.Duration
}

// Connect opens the pool and verifies connectivity with a ping. A default
// timeout is applied when none is provided.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	dsn, err := mysqldriver.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	dsn.ParseTime = true
	dsn.Loc = time.UTC

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("mysql open: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	return db, nil
}

// translate maps constraint violations onto the ports sentinels.
func translate(err error) error {
	var me *mysqldriver.MySQLError
	if !errors.As(err, &me) {
		return err
	}
	switch me.Number {
	case errDuplicateEntry:
		return fmt.Errorf("%w: %s", ports.ErrDuplicateKey, me.Message)
	case errRowIsReferenced, errRowIsReferenced2:
		return fmt.Errorf("%w: %s", ports.ErrRoleInUse, me.Message)
	}
	return err
}
