package db

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithMigrations(t *testing.T) {
	t.Run("successfully opens database and runs migrations", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := OpenWithMigrations(DriverSQLite, dbPath, nil)
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		for _, table := range []string{"schema_migrations", "person_analysis", "issue", "result_page", "job_stats", "cache_marker"} {
			var count int
			err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
			require.NoError(t, err)
			assert.Equal(t, 1, count, "%s table should exist after migrations", table)
		}
	})

	t.Run("rejects unknown driver", func(t *testing.T) {
		db, err := OpenWithMigrations("oracle", "whatever", nil)
		require.Error(t, err)
		assert.Nil(t, db)
		assert.Contains(t, err.Error(), "unsupported database driver")
	})

	t.Run("wraps migration errors with context", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := Open(dbPath, nil)
		require.NoError(t, err)
		// A person_analysis table that predates the migrations makes 001 fail
		_, err = db.Exec("CREATE TABLE person_analysis (bad_schema TEXT)")
		require.NoError(t, err)
		db.Close()

		db, err = OpenWithMigrations(DriverSQLite, dbPath, nil)
		require.Error(t, err)
		assert.Nil(t, db)
		assert.Contains(t, err.Error(), "failed to run migrations")
		assert.Contains(t, err.Error(), "001_create_person_analysis.sql")
		detailed := fmt.Sprintf("%+v", err)
		assert.Contains(t, detailed, "connection.go", "error should have stack trace")
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenWithMigrations(DriverSQLite, dbPath, nil)
	require.NoError(t, err)
	defer db.Close()

	var first int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&first))
	assert.Equal(t, 5, first)

	require.NoError(t, Migrate(db, DriverSQLite, nil))

	var second int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&second))
	assert.Equal(t, first, second, "re-running migrations must not apply anything")
}

func TestMigrationDir(t *testing.T) {
	dir, err := migrationDir(DriverPostgres)
	require.NoError(t, err)
	assert.Equal(t, "postgres/migrations", dir)

	entries, err := migrations.ReadDir(dir)
	require.NoError(t, err)
	sqliteEntries, err := migrations.ReadDir("sqlite/migrations")
	require.NoError(t, err)
	assert.Equal(t, len(sqliteEntries), len(entries), "both dialects carry the same migrations")

	_, err = migrationDir("mysql")
	assert.Error(t, err)
}
