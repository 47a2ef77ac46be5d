package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// migrationDirs maps a DB_DRIVER value to its directory under the migrations root.
var migrationDirs = map[string]string{
	"postgres": "postgresql",
	"mysql":    "mysql",
}

// RunMigrations applies (or, with down set, reverts) the recovery_material schema
// found under migrationsRoot for dbDriver.
func RunMigrations(logger *slog.Logger, dbDriver, dbConnectionString, migrationsRoot string, down bool) error {
	dir, ok := migrationDirs[dbDriver]
	if !ok {
		return fmt.Errorf("unsupported database driver: %q", dbDriver)
	}

	source := "file://" + filepath.ToSlash(filepath.Join(migrationsRoot, dir))
	logger.Info("running database migrations",
		slog.String("driver", dbDriver),
		slog.String("source", source),
		slog.Bool("down", down),
	)

	m, err := migrate.New(source, dbConnectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	apply := m.Up
	if down {
		apply = m.Down
	}
	if err := apply(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("migrations completed, schema is empty")
	case err != nil:
		return fmt.Errorf("failed to read migration version: %w", err)
	default:
		logger.Info("migrations completed", slog.Uint64("version", uint64(version)), slog.Bool("dirty", dirty))
	}
	return nil
}
