package migration

import (
	"testing"

	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAutoMigratesSQLite(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)

	require.NoError(t, Apply(conn, config.DBTypeSQLite))
	// Running twice is a no-op.
	require.NoError(t, Apply(conn, config.DBTypeSQLite))

	for _, table := range []string{"clients", "invoices", "invoice_items"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	src, err := Source()
	require.NoError(t, err)
	defer src.Close()

	version, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	up, identifier, err := src.ReadUp(version)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "init", identifier)

	down, _, err := src.ReadDown(version)
	require.NoError(t, err)
	down.Close()

	next, err := src.Next(version)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)
	up, identifier, err = src.ReadUp(next)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "item_precision", identifier)

	assert.Error(t, RunMigrations(nil))
}
