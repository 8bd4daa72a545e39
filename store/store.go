// Package store persists the analysis working set, issues, flagged results
// and job statistics. It runs against SQLite or PostgreSQL; queries are
// written once with '?' placeholders and rebound by the Dialect.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/werelate/dqa/errors"
	"github.com/werelate/dqa/logger"
)

// DefaultFamilyCacheTTL bounds how long a family row is reused across pages.
const DefaultFamilyCacheTTL = 10 * time.Minute

// Options configures a Store.
type Options struct {
	// FamilyCacheTTL is the lifetime of cached family rows. Zero uses the default.
	FamilyCacheTTL time.Duration
	Logger         *zap.SugaredLogger
}

// Store is the relational store of one analysis database.
type Store struct {
	db       *sql.DB
	dialect  Dialect
	families *cache.Cache
	log      *zap.SugaredLogger
}

// New creates a store over an open, migrated database.
func New(conn *sql.DB, driver string, opts Options) (*Store, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	ttl := opts.FamilyCacheTTL
	if ttl <= 0 {
		ttl = DefaultFamilyCacheTTL
	}
	log := opts.Logger
	if log == nil {
		log = logger.ComponentLogger("store")
	}
	return &Store{
		db:       conn,
		dialect:  d,
		families: cache.New(ttl, 2*ttl),
		log:      log,
	}, nil
}

// Dialect returns the store's SQL dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// q rebinds a query for the store's driver.
func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// withTx runs fn in a transaction, rolling back when fn fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.WithSecondaryError(err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}
