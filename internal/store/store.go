// Package store opens the relational database behind warbler and runs
// schema migrations and transactions on it.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"warbler/internal/models"
)

type Options struct {
	// DSN is a postgres DSN/URL or a sqlite file path.
	DSN      string
	Postgres bool
	Debug    bool
	Logger   *logrus.Logger
}

type Store struct {
	DB *gorm.DB
}

// Open connects to postgres or sqlite depending on opts.Postgres.
func Open(opts Options) (*Store, error) {
	var dialector gorm.Dialector
	if opts.Postgres {
		dialector = postgres.Open(opts.DSN)
	} else {
		dialector = sqlite.Open(sqliteDSN(opts.DSN))
	}

	cfg := &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
	if opts.Logger != nil {
		level := gormlogger.Warn
		if opts.Debug {
			level = gormlogger.Info
		}
		cfg.Logger = gormlogger.New(opts.Logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		})
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if opts.Logger != nil {
		kind := "sqlite"
		if opts.Postgres {
			kind = "postgres"
		}
		opts.Logger.WithField("driver", kind).Info("Database connection successful")
	}

	return &Store{DB: db}, nil
}

// sqliteDSN turns on foreign key enforcement, a busy timeout, WAL journaling
// and immediate transactions for sqlite. Deferred transactions that read and
// then write fail with SQLITE_BUSY without waiting when two of them race for
// the write lock, so every transaction takes it up front.
func sqliteDSN(dsn string) string {
	params := []string{}
	if !strings.Contains(dsn, "_foreign_keys") && !strings.Contains(dsn, "_fk=") {
		params = append(params, "_foreign_keys=1")
	}
	if !strings.Contains(dsn, "_busy_timeout") {
		params = append(params, "_busy_timeout=5000")
	}
	if !strings.Contains(dsn, "_journal_mode") && !strings.Contains(dsn, "_journal=") {
		params = append(params, "_journal_mode=WAL")
	}
	if !strings.Contains(dsn, "_txlock") {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	return dsn + sep + strings.Join(params, "&")
}

// Migrate creates or updates the users, messages, follows and likes tables.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.DB.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction. It commits when fn returns nil and
// rolls back on error or panic; panics are re-raised.
func (s *Store) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.DB.WithContext(ctx).Transaction(fn)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
