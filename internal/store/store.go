// Package store is the relational persistence for customers, transactions,
// quotes, products and settings.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"seafood-agent/internal/domain"
)

// Store wraps a gorm handle. A Store obtained from Transaction is bound to the
// open database transaction.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to the configured driver ("postgres" or "sqlite").
func Open(driver, dsn string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("store: dsn must not be empty")
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	log.Info("connected to relational store", zap.String("driver", driver))
	return New(db, log)
}

// OpenMemory opens a private in-memory sqlite database with the schema
// applied. Used by local runs and tests.
func OpenMemory() (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	s, err := Open("sqlite", dsn, nil)
	if err != nil {
		return nil, err
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := s.AutoMigrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log *zap.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("store: db must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) AutoMigrate() error {
	s.log.Info("auto migrating tables")
	if err := s.db.AutoMigrate(
		&domain.Customer{},
		&domain.Transaction{},
		&domain.Quote{},
		&domain.Product{},
		&domain.Setting{},
	); err != nil {
		return fmt.Errorf("store: auto migrate: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("store: sql handle: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Transaction runs fn against a Store bound to one database transaction.
// Inside fn only the passed Store may be used.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, log: s.log})
	})
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func notFound(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound(entity, fmt.Sprintf("#%d", id))
	}
	return err
}

var now = func() time.Time {
	return time.Now().UTC()
}
