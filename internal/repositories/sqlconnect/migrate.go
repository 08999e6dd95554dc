package sqlconnect

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"billbuddy/internal/config"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/mysql/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations for cfg.Driver. It uses its
// own connection so closing the migrator leaves the application pool alone.
func RunMigrations(cfg config.DBConfig) error {
	var (
		driverName string
		dsn        string
	)
	switch cfg.Driver {
	case "mysql":
		driverName, dsn = "mysql", mysqlDSN(cfg, true)
	case "sqlite":
		driverName, dsn = "sqlite", sqliteDSN(cfg.SQLitePath)
	default:
		return fmt.Errorf("unsupported DB driver %q", cfg.Driver)
	}

	migrateDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	var driver database.Driver
	if driverName == "mysql" {
		driver, err = migratemysql.WithInstance(migrateDB, &migratemysql.Config{})
	} else {
		driver, err = migratesqlite.WithInstance(migrateDB, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("create %s driver: %w", driverName, err)
	}

	d, err := iofs.New(migrationsFS, "migrations/"+driverName)
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, driverName, driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
