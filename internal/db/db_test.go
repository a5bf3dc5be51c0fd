package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/config"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "dsn")
	assert.Error(t, err)
}

func TestMigrateAndReset(t *testing.T) {
	gormDB, err := Open(config.DBDriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, Migrate(gormDB))
	for _, table := range []string{"users", "budget", "category", "expense"} {
		assert.True(t, gormDB.Migrator().HasTable(table), table)
	}

	// Migrating twice is a no-op.
	require.NoError(t, Migrate(gormDB))

	require.NoError(t, Reset(gormDB))
	for _, table := range []string{"users", "budget", "category", "expense"} {
		assert.False(t, gormDB.Migrator().HasTable(table), table)
	}
}
