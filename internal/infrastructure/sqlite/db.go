// Package sqlite is the SQLite-backed user store.
package sqlite

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-api/internal/infrastructure/migrations"
)

// Open opens (or creates) the database at path and creates the users table if
// it is missing. In-memory databases need "file:<name>?mode=memory&cache=shared".
func Open(path string, logger *logrus.Logger) (*sql.DB, error) {
	if path == "" {
		path = "users.db"
	}
	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// SQLite has a single writer; one connection keeps unit-of-work
	// transactions from tripping over each other's locks.
	d.SetMaxOpenConns(1)

	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	// journal_mode is not supported for in-memory databases. Ignore errors.
	_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
	if _, err := d.Exec(`PRAGMA busy_timeout=5000`); err != nil {
		_ = d.Close()
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = d.Close()
		return nil, err
	}
	if err := migrations.Run(d, migrations.DriverSQLite, logger); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}
