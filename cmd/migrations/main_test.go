package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFileContent(t *testing.T) {
	dir := filepath.Join("..", "..", "internal", "adapters", "repository", "postgres", "migrations")

	content, err := migrationFileContent(dir, "001_create_users.up")
	require.NoError(t, err)
	assert.Contains(t, string(content), "CREATE TABLE IF NOT EXISTS users")

	content, err = migrationFileContent(dir, "create_departments.down")
	require.NoError(t, err)
	assert.Contains(t, string(content), "DROP TABLE IF EXISTS departments")

	_, err = migrationFileContent(dir, "999_missing.up")
	assert.Error(t, err)
}

func TestMigrationFilePath_MissingDirectory(t *testing.T) {
	_, err := migrationFilePath(filepath.Join(t.TempDir(), "nope"), "001")
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "001_x.up.sql"), 0o755))
	_, err = migrationFilePath(dir, "001_x.up")
	assert.Error(t, err, "directories are not migrations")
}
