// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"labdesk/internal/platform/database"

	"github.com/stretchr/testify/require"
)

// Open returns a migrated SQLite database living in t.TempDir().
func Open(t *testing.T) (*sql.DB, database.Dialect) {
	t.Helper()
	db, dialect, err := database.Open("sqlite", filepath.Join(t.TempDir(), "labdesk.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, dialect))
	t.Cleanup(func() { db.Close() })
	return db, dialect
}
