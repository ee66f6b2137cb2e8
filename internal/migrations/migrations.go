package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	"medeasy/pos/internal/database"
)

//go:embed sql
var files embed.FS

// Run applies the schema for the given driver. It is a no-op when the schema
// is already current.
func Run(db *sqlx.DB, driver string) error {
	var (
		dir      string
		name     string
		instance migratedb.Driver
		err      error
	)
	switch driver {
	case database.DriverSQLite:
		dir, name = "sql/sqlite", "sqlite"
		instance, err = sqlite.WithInstance(db.DB, &sqlite.Config{})
	case database.DriverPostgres:
		dir, name = "sql/postgres", "pgx5"
		instance, err = migratepgx.WithInstance(db.DB, &migratepgx.Config{})
	default:
		return fmt.Errorf("no migrations for driver %q", driver)
	}
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	source, err := iofs.New(files, dir)
	if err != nil {
		return fmt.Errorf("could not open migration files: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, name, instance)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}
