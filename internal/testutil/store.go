// Package testutil builds throwaway stores for package tests.
package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/oksasatya/go-users-api/internal/infrastructure/sqlite"
)

// NullLogger returns a logger that discards output and a hook that records entries.
func NullLogger() (*logrus.Logger, *logtest.Hook) {
	return logtest.NewNullLogger()
}

// OpenSQLite opens a migrated in-memory database private to the test. name
// must be unique per test since shared-cache databases are keyed by it.
func OpenSQLite(t *testing.T, name string) *sql.DB {
	t.Helper()
	logger, _ := NullLogger()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := sqlite.Open(dsn, logger)
	if err != nil {
		t.Fatalf("open sqlite %s: %v", name, err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// OpenInMemoryStore returns a unit-of-work store over a fresh in-memory database.
func OpenInMemoryStore(t *testing.T, name string) *sqlite.Store {
	t.Helper()
	return sqlite.NewStore(OpenSQLite(t, name))
}
