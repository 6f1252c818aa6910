// Package pg implements the persistence interfaces over PostgreSQL.
package pg

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"medregistry.org/internal/account"
	"medregistry.org/internal/audit"
	"medregistry.org/internal/auth"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var (
	_ account.Store        = (*Store)(nil)
	_ auth.ActorStore      = (*Store)(nil)
	_ audit.Store          = (*Store)(nil)
	_ audit.ActorDirectory = (*Store)(nil)
)

// Store wraps a pooled database handle.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL with pool defaults tuned for this service.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle (used by tests with sqlmock).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw handle for readiness probes.
func (s *Store) DB() *sql.DB { return s.db }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
