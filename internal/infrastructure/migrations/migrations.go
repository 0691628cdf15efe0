// Package migrations embeds the versioned schema files and applies them on startup.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Run applies every pending up migration for driver on db. Running it against
// an initialized schema is a no-op.
func Run(db *sql.DB, driver string, logger *logrus.Logger) error {
	src, err := iofs.New(files, driver)
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", driver, err)
	}

	var target database.Driver
	switch driver {
	case DriverPostgres:
		target, err = pgmigrate.WithInstance(db, &pgmigrate.Config{})
	case DriverSQLite:
		target, err = sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	default:
		return fmt.Errorf("unsupported migration driver %q", driver)
	}
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, target)
	if err != nil {
		return err
	}
	if ownsConn(driver) {
		defer func() {
			if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
				logger.WithFields(logrus.Fields{"source": srcErr, "database": dbErr}).Warn("closing migrator")
			}
		}()
	}
	logger.WithField("driver", driver).Info("running migrations...")
	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to run")
		return nil
	}
	return err
}

// ownsConn reports whether the migrate driver pins a connection of its own
// that must be released once migrations finish. The sqlite3 driver runs on db
// directly and closing it would close the caller's handle.
func ownsConn(driver string) bool {
	return driver == DriverPostgres
}
