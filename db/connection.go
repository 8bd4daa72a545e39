package db

import (
	"database/sql"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/werelate/dqa/errors"
)

// Supported drivers, as registered with database/sql
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Open opens a SQLite database at the specified path with optimized settings.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening database", "driver", DriverSQLite, "path", path)
	}
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// One writer at a time; also keeps ":memory:" databases on a single connection
	db.SetMaxOpenConns(1)

	pragmas := []struct {
		stmt string
		what string
	}{
		{"PRAGMA journal_mode = WAL", "enable WAL mode"},
		{"PRAGMA foreign_keys = ON", "enable foreign keys"},
		{"PRAGMA busy_timeout = 5000", "set busy timeout"},
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p.stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to %s", p.what)
		}
	}

	if logger != nil {
		logger.Infow("Database opened successfully",
			"driver", DriverSQLite,
			"path", path,
			"wal_mode", true,
		)
	}

	return db, nil
}

// OpenPostgres opens a PostgreSQL database and verifies the connection.
func OpenPostgres(dsn string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening database", "driver", DriverPostgres)
	}
	db, err := sql.Open(DriverPostgres, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to postgres")
	}

	if logger != nil {
		logger.Infow("Database opened successfully", "driver", DriverPostgres)
	}
	return db, nil
}

// OpenWithMigrations opens the database for driver and applies pending migrations.
// source is a file path for sqlite3 and a DSN for postgres.
func OpenWithMigrations(driver, source string, logger *zap.SugaredLogger) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = Open(source, logger)
	case DriverPostgres:
		db, err = OpenPostgres(source, logger)
	default:
		return nil, errors.Newf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, err
	}

	if err := Migrate(db, driver, logger); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}
	return db, nil
}
