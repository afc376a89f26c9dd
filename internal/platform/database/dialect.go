package database

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"labdesk/internal/platform/config"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the differences between the supported SQL backends.
// Queries are written with '?' placeholders and rebound per dialect.
type Dialect struct {
	Name       string
	DriverName string
}

var (
	PostgresDialect = Dialect{Name: config.DriverPostgres, DriverName: "pgx"}
	SQLiteDialect   = Dialect{Name: config.DriverSQLite, DriverName: "sqlite"}
)

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres, "":
		return PostgresDialect, nil
	case config.DriverSQLite:
		return SQLiteDialect, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Rebind converts '?' placeholders into the dialect's bind syntax.
func (d Dialect) Rebind(query string) string {
	if d.Name != config.DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// IsUniqueViolation reports whether err is a unique or primary key constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
