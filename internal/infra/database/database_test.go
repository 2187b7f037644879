package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopify-price-manager/internal/config"
)

func TestOpen_SQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.db")

	db, dialect, err := Open(t.Context(), config.DatabaseConfig{Driver: config.DriverSQLite, URL: "file:" + path}, config.MysqlConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, config.DriverSQLite, dialect)

	var fk int
	require.NoError(t, db.QueryRowContext(t.Context(), "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	_, err = db.ExecContext(t.Context(), "CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestOpen_SQLiteMemory(t *testing.T) {
	db, _, err := Open(t.Context(), config.DatabaseConfig{Driver: config.DriverSQLite, URL: "sqlite::memory:"}, config.MysqlConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.ExecContext(t.Context(), "CREATE TABLE t (id INTEGER)")
	assert.NoError(t, err)
}

func TestOpen_Errors(t *testing.T) {
	_, _, err := Open(t.Context(), config.DatabaseConfig{Driver: "oracle"}, config.MysqlConfig{})
	assert.ErrorContains(t, err, "unsupported database driver")

	_, _, err = Open(t.Context(), config.DatabaseConfig{Driver: config.DriverMySQL}, config.MysqlConfig{Host: "localhost"})
	assert.Error(t, err)

	_, _, err = Open(t.Context(), config.DatabaseConfig{Driver: config.DriverPostgres}, config.MysqlConfig{})
	assert.Error(t, err)
}
