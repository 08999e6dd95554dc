package sqlconnect

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"billbuddy/internal/config"
	"billbuddy/pkg/utils"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// DBTX is satisfied by both *sql.DB and *sql.Tx so the stores can run inside
// or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ConnectDb opens the configured database and stores it in DB.
func ConnectDb(cfg config.DBConfig) (*sql.DB, error) {
	if DB != nil {
		return DB, nil
	}

	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	DB = db
	return DB, nil
}

// Open returns a new pool for cfg without touching the package-level DB.
func Open(cfg config.DBConfig) (*sql.DB, error) {
	driver, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	utils.Logger.Infof("Connecting to %s...", driver)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB connection: %w", err)
	}

	if driver == "sqlite" {
		// one writer at a time, otherwise concurrent transactions hit SQLITE_BUSY
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	utils.Logger.Infof("Connected to %s", driver)
	return db, nil
}

func dataSource(cfg config.DBConfig) (string, string, error) {
	switch cfg.Driver {
	case "mysql":
		return "mysql", mysqlDSN(cfg, false), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", "", fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		return "sqlite", sqliteDSN(cfg.SQLitePath), nil
	default:
		return "", "", fmt.Errorf("unsupported DB driver %q", cfg.Driver)
	}
}

func mysqlDSN(cfg config.DBConfig, multiStatements bool) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = cfg.Host + ":" + cfg.Port
	mc.DBName = cfg.Name
	mc.MultiStatements = multiStatements
	return mc.FormatDSN()
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
