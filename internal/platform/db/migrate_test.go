package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(migrations, "migrations")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	require.NotEmpty(t, ups)
	require.Equal(t, ups, downs)

	schema, err := fs.ReadFile(migrations, "migrations/000001_init.up.sql")
	require.NoError(t, err)
	for _, table := range []string{"requests", "request_items", "request_files", "activity_logs", "buyer_performance", "users"} {
		require.Contains(t, string(schema), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestVersionMigrationWidensQuantities(t *testing.T) {
	up, err := fs.ReadFile(migrations, "migrations/000002_request_versions.up.sql")
	require.NoError(t, err)
	require.Contains(t, string(up), "ADD COLUMN IF NOT EXISTS version BIGINT")
	require.Equal(t, 6, strings.Count(string(up), "NUMERIC(18, 4)"))
}
