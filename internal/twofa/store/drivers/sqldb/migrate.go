package sqldb

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/aussiebroadwan/sentinel/internal/twofa/store/drivers/sqldb/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// ApplyMigrations applies any pending migrations for the store's dialect from
// the schema embedded in the binary.
func (s *Store) ApplyMigrations() error {
	var (
		driver database.Driver
		source fs.FS
		dir    string
		err    error
	)

	// 1. Create the database migration driver
	switch s.dialect {
	case DialectSQLite:
		driver, err = sqlite.WithInstance(s.db.DB, &sqlite.Config{})
		source, dir = migrations.SQLite, "sqlite"
	case DialectPostgres:
		driver, err = migratepgx.WithInstance(s.db.DB, &migratepgx.Config{})
		source, dir = migrations.Postgres, "postgres"
	default:
		return fmt.Errorf("no migrations for dialect %q", s.dialect)
	}
	if err != nil {
		return err
	}

	// 2. Create the iofs (embedded filesystem) source driver
	migrationsFilesystem, err := iofs.New(source, dir)
	if err != nil {
		return err
	}

	// 3. Create the migrate instance to run migrations
	instance, err := migrate.NewWithInstance("iofs", migrationsFilesystem, s.dialect, driver)
	if err != nil {
		return err
	}

	// 4. Apply all up migrations
	err = instance.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
