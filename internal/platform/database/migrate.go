package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Migrate creates any missing tables. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	raw, err := schemaFS.ReadFile("schema/" + dialect.Name + ".sql")
	if err != nil {
		return fmt.Errorf("no schema for dialect %s: %w", dialect.Name, err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}
