package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationFS embed.FS

// MigrationStatus reports the schema version after Migrate ran.
type MigrationStatus struct {
	Version uint
	Dirty   bool
}

// Migrate applies all pending embedded migrations for the store dialect.
func (s *Store) Migrate(ctx context.Context, logger *slog.Logger) (MigrationStatus, error) {
	if logger == nil {
		logger = slog.Default()
	}

	m, release, err := s.newMigrator()
	if err != nil {
		return MigrationStatus{}, err
	}
	defer release()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationStatus{}, fmt.Errorf("sqlstore: migration up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, fmt.Errorf("sqlstore: migration version: %w", err)
	}

	status := MigrationStatus{Version: version, Dirty: dirty}
	logger.InfoContext(ctx, "migrations applied", "dialect", string(s.dialect), "version", status.Version, "dirty", status.Dirty)
	return status, nil
}

// newMigrator builds a migrator for the store dialect. The returned release
// func frees what the migrator owns and never closes the shared pool.
func (s *Store) newMigrator() (*migrate.Migrate, func(), error) {
	var dir string
	switch s.dialect {
	case DialectSQLite:
		dir = "migrations/sqlite"
	case DialectPostgres:
		dir = "migrations/postgres"
	default:
		return nil, nil, fmt.Errorf("sqlstore: unsupported dialect %q", s.dialect)
	}

	src, err := iofs.New(migrationFS, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlstore: migration source: %w", err)
	}

	if s.dialect == DialectSQLite {
		// The sqlite driver closes the *sql.DB it wraps, so m.Close is
		// skipped and only the source is released.
		driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
		if err != nil {
			_ = src.Close()
			return nil, nil, fmt.Errorf("sqlstore: migration driver: %w", err)
		}
		m, err := migrate.NewWithInstance("iofs", src, string(s.dialect), driver)
		if err != nil {
			_ = src.Close()
			return nil, nil, fmt.Errorf("sqlstore: migration init: %w", err)
		}
		return m, func() { _ = src.Close() }, nil
	}

	// The pgx driver pins a connection and closes its *sql.DB on Close, so it
	// gets a pool of its own and m.Close releases everything.
	db, err := sql.Open(string(DialectPostgres), s.dsn)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("sqlstore: migration pool: %w", err)
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		_ = db.Close()
		_ = src.Close()
		return nil, nil, fmt.Errorf("sqlstore: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, string(s.dialect), driver)
	if err != nil {
		_ = driver.Close()
		_ = src.Close()
		return nil, nil, fmt.Errorf("sqlstore: migration init: %w", err)
	}
	return m, func() { _, _ = m.Close() }, nil
}
