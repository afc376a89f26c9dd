package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/platform/database"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type sqlBase struct {
	db      *sql.DB
	dialect database.Dialect
}

// conn picks the transaction when one is in flight.
func (b sqlBase) conn(tx *sql.Tx) DBTX {
	if tx != nil {
		return tx
	}
	return b.db
}

func (b sqlBase) q(query string) string {
	return b.dialect.Rebind(query)
}

// likePattern builds a case-insensitive substring pattern for LIKE.
func likePattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// orderClause translates a listing's sort into SQL. Only sortable table
// columns with an entry in columns are accepted.
func orderClause(table *model.Table, q model.ListQuery, columns map[string]string) (string, error) {
	col, ok := table.Column(q.SortBy)
	sqlCol, mapped := columns[q.SortBy]
	if !ok || !col.Sortable || !mapped {
		return "", common.NewFieldError("sort_by", fmt.Sprintf("cannot sort %s by %q", table.Name, q.SortBy))
	}
	dir := "ASC"
	if q.Order == model.SortDesc {
		dir = "DESC"
	}
	return " ORDER BY " + sqlCol + " " + dir + ", id " + dir, nil
}

func checkAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", what, err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}
