// Package sqlstore implements persistence.Store on top of database/sql using
// sqlx. SQLite (modernc.org/sqlite) and PostgreSQL (pgx) are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/example/conference-scheduler/internal/persistence"
)

// Dialect identifies the SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "pgx"
)

func init() {
	sqlx.BindDriver(string(DialectSQLite), sqlx.QUESTION)
}

// timeLayout keeps TEXT timestamps lexically ordered.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store is a persistence.Store backed by a SQL database. A Store returned by
// WithinTransaction routes every query through the open transaction.
type Store struct {
	db      *sqlx.DB
	ext     sqlx.ExtContext
	dialect Dialect
	dsn     string
	retry   *RetryHelper
	mapper  *ErrorMapper
	inTx    bool
}

var _ persistence.Store = (*Store)(nil)

// Open connects to the database identified by driver and dsn.
func Open(ctx context.Context, driver Dialect, dsn string) (*Store, error) {
	switch driver {
	case DialectSQLite, DialectPostgres:
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", driver)
	}

	db, err := sqlx.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if driver == DialectSQLite {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}

	return &Store{
		db:      db,
		ext:     db,
		dialect: driver,
		dsn:     dsn,
		retry:   NewRetryHelper(DefaultRetryConfig()),
		mapper:  NewErrorMapper(),
	}, nil
}

// DB exposes the underlying handle for migrations and health checks.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Dialect reports the backend in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool. Closing a transaction bound Store is a no-op.
func (s *Store) Close() error {
	if s.inTx || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithinTransaction runs fn inside a transaction, retrying the whole unit when
// the database reports a serialization failure. PostgreSQL transactions run
// at SERIALIZABLE isolation. Nested calls reuse the open transaction.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx persistence.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	return s.retry.WithRetry(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, s.txOptions())
		if err != nil {
			return fmt.Errorf("sqlstore: begin transaction: %w", err)
		}

		txStore := &Store{
			db:      s.db,
			ext:     tx,
			dialect: s.dialect,
			dsn:     s.dsn,
			retry:   s.retry,
			mapper:  s.mapper,
			inTx:    true,
		}

		defer func() {
			if p := recover(); p != nil {
				_ = tx.Rollback()
				panic(p)
			}
		}()

		if err := fn(ctx, txStore); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				return fmt.Errorf("transaction failed (rollback error: %v): %w", rbErr, err)
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("sqlstore: commit: %w", s.mapper.MapError(err))
		}
		return nil
	})
}

func (s *Store) txOptions() *sql.TxOptions {
	if s.dialect == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if ts, err := time.Parse(timeLayout, value); err == nil {
		return ts, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*value), Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func timePtr(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	ts, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &ts, nil
}
