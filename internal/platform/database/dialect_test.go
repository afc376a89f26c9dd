package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"labdesk/internal/platform/config"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	q := "SELECT id FROM users WHERE email = ? AND status = ? LIMIT ?"
	assert.Equal(t, "SELECT id FROM users WHERE email = $1 AND status = $2 LIMIT $3", PostgresDialect.Rebind(q))
	assert.Equal(t, q, SQLiteDialect.Rebind(q))
}

func TestDialectFor(t *testing.T) {
	d, err := DialectFor("sqlite")
	require.NoError(t, err)
	assert.Equal(t, SQLiteDialect, d)

	d, err = DialectFor("")
	require.NoError(t, err)
	assert.Equal(t, PostgresDialect, d)

	_, err = DialectFor("oracle")
	assert.Error(t, err)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))

	db, dialect, err := Open("sqlite", filepath.Join(t.TempDir(), "u.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(context.Background(), db, dialect))
	// Running twice must be harmless.
	require.NoError(t, Migrate(context.Background(), db, dialect))

	insert := `INSERT INTO users (id, name, handle, email, hashed_password, role, status, created_at, updated_at)
	           VALUES (?, 'A', ?, 'a@example.com', 'x', 'user', 'active', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	_, err = db.Exec(insert, "1", "a")
	require.NoError(t, err)
	_, err = db.Exec(insert, "2", "b")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestConnect_SQLiteSetsActiveDialect(t *testing.T) {
	prevCfg, prevDB, prevDialect := config.AppConfig, DB, ActiveDialect
	t.Cleanup(func() {
		Close()
		config.AppConfig, DB, ActiveDialect = prevCfg, prevDB, prevDialect
	})

	config.AppConfig = &config.Config{
		DBDriver:   config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "connect.db"),
	}
	Connect()

	assert.Equal(t, SQLiteDialect, ActiveDialect)
	var n int
	require.NoError(t, DB.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Zero(t, n)
}
