// Package config loads runtime settings for the warbler server.
//
// Values are resolved in order: defaults declared on the struct tags, an
// optional .env file, process environment and finally command-line flags.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Config holds runtime settings for the server.
type Config struct {
	Addr string `env:"PORT,default=:9090"`

	// DatabaseURL is either a sqlite file path or a postgres DSN/URL.
	// When DBHost is set it is ignored and a postgres DSN is built from the
	// DB_* variables instead. Database (DATABASE, a sqlite path) stands in
	// for it when DATABASE_URL is unset.
	DatabaseURL string `env:"DATABASE_URL,default=warbler.db"`
	Database    string `env:"DATABASE"`
	DBHost      string `env:"DB_HOST"`
	DBPort      string `env:"DB_PORT,default=5432"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME,default=warbler"`
	DBSSLMode   string `env:"DB_SSLMODE,default=require"`
	SQLDebug    bool   `env:"SQL_DEBUG,default=false"`

	SecretKey     string        `env:"SECRET_KEY,default=it's a secret"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE,default=16h"`
	SecureCookies bool          `env:"SECURE_COOKIES,default=false"`
	CSRFEnabled   bool          `env:"CSRF_ENABLED,default=true"`
	BcryptCost    int           `env:"BCRYPT_COST,default=10"`

	LogLevel     string        `env:"LOG_LEVEL,default=info"`
	LogstashAddr string        `env:"LOGSTASH_ADDR"`
	SlowRequest  time.Duration `env:"SLOW_REQUEST_THRESHOLD,default=2s"`

	// RequireMessageOwner restricts message deletion to the author.
	RequireMessageOwner bool `env:"WARBLER_REQUIRE_MESSAGE_OWNER,default=false"`
	// ProtectUserDelete enables the CSRF check on account deletion.
	ProtectUserDelete bool `env:"WARBLER_PROTECT_USER_DELETE,default=false"`
}

// LoadConfig builds a Config from .env, the environment and os.Args.
func LoadConfig() (*Config, error) {
	// a missing .env file is fine, the environment may already be populated
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, os.Args[1:]); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv decodes the environment into a new Config.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	err := envdecode.Decode(cfg)
	if err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if cfg.Database != "" && os.Getenv("DATABASE_URL") == "" {
		cfg.DatabaseURL = cfg.Database
	}
	return cfg, nil
}

// parseFlags overrides selected fields from command-line flags.
//
//	-a string   listen address (e.g. ":9090")
//	-d string   database url (sqlite path or postgres DSN)
//	-s string   session secret
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("warbler", flag.ContinueOnError)

	fs.StringVar(&cfg.Addr, "a", cfg.Addr, "address and port to run server")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "database url")
	fs.StringVar(&cfg.SecretKey, "s", cfg.SecretKey, "session secret key")

	return fs.Parse(args)
}

// DSN returns the connection string handed to the store.
func (c *Config) DSN() string {
	if c.DBHost == "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// IsPostgres reports whether DSN points at a postgres server.
func (c *Config) IsPostgres() bool {
	dsn := c.DSN()
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}
