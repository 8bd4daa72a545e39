package db

import (
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/werelate/dqa/errors"
)

//go:embed sqlite/migrations/*.sql postgres/migrations/*.sql
var migrations embed.FS

// migrationDir returns the embedded migration directory for driver
func migrationDir(driver string) (string, error) {
	switch driver {
	case DriverSQLite:
		return "sqlite/migrations", nil
	case DriverPostgres:
		return "postgres/migrations", nil
	}
	return "", errors.Newf("no migrations for driver %q", driver)
}

// Migrate runs all pending migrations for driver.
// If logger is provided, logs migration progress; otherwise operates silently.
func Migrate(db *sql.DB, driver string, logger *zap.SugaredLogger) error {
	dir, err := migrationDir(driver)
	if err != nil {
		return err
	}

	entries, err := migrations.ReadDir(dir)
	if err != nil {
		return errors.Wrap(err, "read migrations")
	}

	// Sort migrations (000_create_schema_migrations.sql runs first)
	var migrationFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			migrationFiles = append(migrationFiles, entry.Name())
		}
	}
	sort.Strings(migrationFiles)

	existsQuery := "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)"
	recordStmt := "INSERT INTO schema_migrations (version) VALUES (?)"
	if driver == DriverPostgres {
		existsQuery = "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)"
		recordStmt = "INSERT INTO schema_migrations (version) VALUES ($1)"
	}

	applied := 0
	for _, filename := range migrationFiles {
		version := strings.Split(filename, "_")[0]

		// schema_migrations is created by 000
		var exists bool
		err := db.QueryRow(existsQuery, version).Scan(&exists)
		if err != nil {
			if version != "000" {
				return errors.Newf("schema_migrations table missing, but migration is not 000: %s", filename)
			}
		} else if exists {
			if logger != nil {
				logger.Debugw("Skipping migration (already applied)",
					"migration", filename,
					"version", version,
				)
			}
			continue
		}

		sqlBytes, err := migrations.ReadFile(path.Join(dir, filename))
		if err != nil {
			return errors.Wrapf(err, "read %s", filename)
		}

		if logger != nil {
			logger.Infow("Applying migration",
				"migration", filename,
				"version", version,
				"driver", driver,
			)
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Wrapf(err, "begin tx for %s", filename)
		}

		if _, err := tx.Exec(string(sqlBytes)); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "execute %s", filename)
		}

		if _, err := tx.Exec(recordStmt, version); err != nil {
			tx.Rollback()
			return errors.Wrapf(err, "record %s", filename)
		}

		if err := tx.Commit(); err != nil {
			return errors.Wrapf(err, "commit %s", filename)
		}
		applied++
	}

	if logger != nil {
		logger.Infow("Migrations complete",
			"driver", driver,
			"total_migrations", len(migrationFiles),
			"applied", applied,
		)
	}

	return nil
}
