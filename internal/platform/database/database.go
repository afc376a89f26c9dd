package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"labdesk/internal/platform/config"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

var (
	DB *sql.DB
	// ActiveDialect is the dialect of DB, set by Connect.
	ActiveDialect = PostgresDialect
)

// Connect opens the configured database, verifies it and applies the schema.
func Connect() {
	var err error
	DB, ActiveDialect, err = Open(config.AppConfig.DBDriver, config.AppConfig.DSN())
	if err != nil {
		zap.L().Fatal("Error connecting to database", zap.Error(err))
	}
	if err := Migrate(context.Background(), DB, ActiveDialect); err != nil {
		zap.L().Fatal("Error applying schema", zap.Error(err))
	}
	zap.L().Info("Successfully connected to database", zap.String("driver", config.AppConfig.DBDriver))
}

// Open returns a pooled handle for driver ("postgres" or "sqlite") with its dialect.
func Open(driver, dsn string) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, Dialect{}, err
	}

	db, err := sql.Open(dialect.DriverName, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("error opening database: %w", err)
	}

	if dialect.Name == config.DriverSQLite {
		// SQLite has a single writer; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("error connecting to database: %w", err)
	}

	if dialect.Name == config.DriverSQLite {
		for _, pragma := range []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
			"PRAGMA foreign_keys = ON",
		} {
			if _, err := db.Exec(pragma); err != nil {
				db.Close()
				return nil, Dialect{}, fmt.Errorf("failed to execute %q: %w", pragma, err)
			}
		}
	}
	return db, dialect, nil
}

func Close() {
	if DB != nil {
		DB.Close()
		zap.L().Info("Database connection closed.")
	}
}
