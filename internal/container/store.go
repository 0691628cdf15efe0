package container

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-api/config"
	"github.com/oksasatya/go-users-api/internal/domain/repository"
	"github.com/oksasatya/go-users-api/internal/infrastructure/migrations"
	pginfra "github.com/oksasatya/go-users-api/internal/infrastructure/postgres"
	"github.com/oksasatya/go-users-api/internal/infrastructure/sqlite"
)

// OpenStore connects to the configured database, applies migrations and
// returns the store with a function that releases it.
func OpenStore(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repository.Store, func(), error) {
	switch cfg.DBDriver {
	case migrations.DriverPostgres:
		if err := pginfra.Migrate(cfg.PostgresDSN(), logger); err != nil {
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pginfra.NewStore(pool), pool.Close, nil
	case migrations.DriverSQLite, "sqlite3":
		db, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return sqlite.NewStore(db), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}
