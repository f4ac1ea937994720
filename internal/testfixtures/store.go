package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/conference-scheduler/internal/persistence"
	"github.com/example/conference-scheduler/internal/persistence/memory"
	"github.com/example/conference-scheduler/internal/persistence/sqlstore"
)

// Backend names a persistence implementation exercised by contract tests.
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
)

// Backends lists every backend that runs without external services.
var Backends = []Backend{BackendMemory, BackendSQLite}

// OpenStore returns an empty, migrated store closed when the test ends.
func OpenStore(tb testing.TB, backend Backend) persistence.Store {
	tb.Helper()

	switch backend {
	case BackendMemory:
		return memory.Open()
	case BackendSQLite:
		dsn := "file:" + filepath.Join(tb.TempDir(), "conference.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		store, err := sqlstore.Open(context.Background(), sqlstore.DialectSQLite, dsn)
		if err != nil {
			tb.Fatalf("open sqlite store: %v", err)
		}
		tb.Cleanup(func() { _ = store.Close() })
		if _, err := store.Migrate(context.Background(), nil); err != nil {
			tb.Fatalf("migrate sqlite store: %v", err)
		}
		return store
	}
	tb.Fatalf("unknown backend %q", backend)
	return nil
}
