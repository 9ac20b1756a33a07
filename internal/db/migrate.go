package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// MigratePostgres applies the embedded Postgres migrations.
func MigratePostgres(config Config) error {
	src, err := iofs.New(migrationFS, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("failed to load postgres migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, config.MigrationURL())
	if err != nil {
		return fmt.Errorf("failed to init postgres migrations: %w", err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Printf("[db] failed to close migrator: source=%v database=%v", srcErr, dbErr)
		}
	}()

	return runUp(m, "postgres")
}

// MigrateSQLite applies the embedded SQLite migrations on conn. The migrator
// is not closed because that would close conn.
func MigrateSQLite(conn *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations/sqlite")
	if err != nil {
		return fmt.Errorf("failed to load sqlite migrations: %w", err)
	}

	driver, err := sqlitemigrate.WithInstance(conn, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to init sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to init sqlite migrations: %w", err)
	}

	return runUp(m, "sqlite")
}

func runUp(m *migrate.Migrate, name string) error {
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Printf("[db] %s schema up to date", name)
			return nil
		}
		return fmt.Errorf("failed to apply %s migrations: %w", name, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to read %s migration version: %w", name, err)
	}
	log.Printf("[db] %s schema migrated to version %d (dirty=%v)", name, version, dirty)
	return nil
}
