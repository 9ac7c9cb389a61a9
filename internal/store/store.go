// Package store persists samples and their population counts and answers the
// relational queries the analysis layer is built on.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

// Supported drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config selects the backing database.
type Config struct {
	Driver string
	// DSN is a file path for duckdb and sqlite (":memory:" allowed) and a
	// connection URL for postgres.
	DSN string
}

// Store is the sample store. Writers are serialised; readers share.
type Store struct {
	db     *sqlx.DB
	driver string
	mu     sync.RWMutex
	log    logrus.FieldLogger
}

// Open connects to the configured database and bootstraps the schema.
func Open(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver != DriverPostgres {
		// Embedded engines: one connection keeps ":memory:" databases alive and
		// matches their single-writer model.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	s := New(db, cfg.Driver, log)
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.WithFields(logrus.Fields{"driver": cfg.Driver, "dsn": cfg.DSN}).Info("sample store ready")
	return s, nil
}

// New wraps an existing connection. The schema is assumed to exist.
func New(db *sqlx.DB, driver string, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{db: db, driver: driver, log: log}
}

func dataSource(cfg Config) (string, error) {
	switch cfg.Driver {
	case DriverSQLite:
		path := cfg.DSN
		if path == "" {
			path = "cytometry.db"
		}
		if err := ensureDir(path); err != nil {
			return "", err
		}
		return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	case DriverDuckDB:
		if err := ensureDir(cfg.DSN); err != nil {
			return "", err
		}
		return cfg.DSN, nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return "", errors.New("postgres dsn required")
		}
		return cfg.DSN, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

func ensureDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("create dirs: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver reports the database driver name.
func (s *Store) Driver() string { return s.driver }

// withTx runs fn inside a transaction holding the write lock. The transaction
// is rolled back unless fn and the commit both succeed.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
