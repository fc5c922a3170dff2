package persistence

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers the postgres database driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // registers the file:// source driver
)

// RunMigrations brings the billing schema up to date from the numbered SQL
// files under migrationsPath. An already-current schema is not an error; a
// dirty migration state is, and needs operator attention before the services
// start.
func RunMigrations(databaseURL string, migrationsPath string) error {
	if databaseURL == "" {
		return errors.New("database URL cannot be empty")
	}
	if migrationsPath == "" {
		return errors.New("migrations path cannot be empty")
	}

	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open migrations at %s: %w", migrationsPath, err)
	}

	if upErr := m.Up(); upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		m.Close()
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	sourceErr, dbErr := m.Close()
	if closeErr := errors.Join(sourceErr, dbErr); closeErr != nil {
		return fmt.Errorf("failed to close migration handles: %w", closeErr)
	}

	return nil
}
