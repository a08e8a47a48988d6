package config

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Environment names the deployment stage.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// IsDebug reports whether API docs and pretty logs are enabled.
func (e Environment) IsDebug() bool { return e != EnvProduction }

// IsDeployed is true everywhere except the test environment.
func (e Environment) IsDeployed() bool { return e != EnvTesting }

const (
	StoreMySQL = "mysql"
	StoreMongo = "mongo"
)

type Config struct {
	Port        string      `env:"PORT,          default=8080"`
	Env         Environment `env:"ENV,           default=development"`
	LogLevel    string      `env:"LOG_LEVEL,     default=info"`
	APIPrefix   string      `env:"API_PREFIX,    default=/api/v1"`
	ProjectName string      `env:"PROJECT_NAME,  default=identity-system"`
	FrontendURL string      `env:"FRONTEND_HOST, default=http://localhost:5173"`
	CORSOrigins []string    `env:"CORS_ORIGINS"`

	Security  SecurityConfig
	Superuser SuperuserConfig
	Store     StoreConfig
	MySQL     MySQLConfig
	Mongo     MongoConfig
	Redis     RedisConfig
	SMTP      SMTPConfig
}

type SecurityConfig struct {
	SecretKey          string `env:"SECRET_KEY"`
	Algorithm          string `env:"JWT_ALGORITHM,               default=HS256"`
	AccessTokenMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES, default=11520"`
	ResetTokenHours    int    `env:"RESET_TOKEN_EXPIRE_HOURS,    default=48"`
	HashScheme         string `env:"HASH_SCHEME,                 default=bcrypt"`
	BcryptCost         int    `env:"BCRYPT_COST,                 default=12"`
}

type SuperuserConfig struct {
	Username string `env:"FIRST_SUPERUSER,          default=admin"`
	Email    string `env:"FIRST_SUPERUSER_EMAIL,    default=admin@example.com"`
	Password string `env:"FIRST_SUPERUSER_PASSWORD, default=changethis"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=mysql"`
}

type MySQLConfig struct {
	DSN string `env:"MYSQL_DSN, default=identity:identity@tcp(localhost:3306)/identity?parseTime=true"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017/?replicaSet=rs0"`
	Database string `env:"MONGO_DB,  default=identity_system"`
}

type RedisConfig struct {
	Enabled  bool          `env:"REDIS_ENABLED,  default=false"`
	Addr     string        `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string        `env:"REDIS_PASSWORD"`
	DB       int           `env:"REDIS_DB,       default=0"`
	RoleTTL  time.Duration `env:"ROLE_CACHE_TTL, default=10m"`
}

type SMTPConfig struct {
	Host      string `env:"SMTP_HOST"`
	Port      int    `env:"SMTP_PORT,         default=587"`
	User      string `env:"SMTP_USER"`
	Password  string `env:"SMTP_PASSWORD"`
	FromEmail string `env:"EMAILS_FROM_EMAIL"`
	Workers   int    `env:"MAIL_WORKERS,      default=2"`
}

// EmailsEnabled reports whether enough SMTP settings are present to send mail.
func (s SMTPConfig) EmailsEnabled() bool {
	return s.Host != "" && s.FromEmail != ""
}

func (s SecurityConfig) AccessTokenTTL() time.Duration {
	return time.Duration(s.AccessTokenMinutes) * time.Minute
}

func (s SecurityConfig) ResetTokenTTL() time.Duration {
	return time.Duration(s.ResetTokenHours) * time.Hour
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Security.SecretKey == "" {
		key, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Security.SecretKey = key
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Env {
	case EnvDevelopment, EnvTesting, EnvStaging, EnvProduction:
	default:
		return fmt.Errorf("config: unknown ENV %q", c.Env)
	}

	switch c.Store.Driver {
	case StoreMySQL, StoreMongo:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Security.AccessTokenMinutes <= 0 || c.Security.ResetTokenHours <= 0 {
		return fmt.Errorf("config: token lifetimes must be positive")
	}

	if c.Env == EnvProduction {
		if c.Superuser.Password == "changethis" {
			return fmt.Errorf("config: FIRST_SUPERUSER_PASSWORD must be changed in production")
		}
		if c.Security.SecretKey == "" || c.Security.SecretKey == "changethis" {
			return fmt.Errorf("config: SECRET_KEY must be set in production")
		}
	}

	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")
	c.FrontendURL = strings.TrimRight(c.FrontendURL, "/")
	return nil
}

// randomSecret returns 32 random bytes, URL-safe encoded. Tokens signed with
// it do not survive a restart.
func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
