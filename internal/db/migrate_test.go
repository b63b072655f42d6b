package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_UpStatusDown(t *testing.T) {
	ctx := context.Background()
	conn := filepath.Join(t.TempDir(), "nested", "test.db") + "?_pragma=foreign_keys(1)"

	database, err := Init(ctx, "sqlite", conn)
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, RunMigrations(ctx, database.DB, "sqlite"))

	states, err := MigrationStatus(ctx, database.DB, "sqlite")
	require.NoError(t, err)
	require.NotEmpty(t, states)
	for _, s := range states {
		assert.True(t, s.Applied, s.Path)
	}

	var count int
	require.NoError(t, database.Get(&count, `SELECT COUNT(*) FROM goals`))
	assert.Zero(t, count)

	require.NoError(t, MigrateDown(ctx, database.DB, "sqlite"))

	_, err = database.Exec(`SELECT COUNT(*) FROM goals`)
	assert.Error(t, err)
}

func TestMigrations_UnknownDriver(t *testing.T) {
	err := RunMigrations(context.Background(), nil, "mysql")
	assert.ErrorContains(t, err, "unsupported database driver")
}
