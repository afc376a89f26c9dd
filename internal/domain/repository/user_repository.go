package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/platform/database"
)

type UserRepository interface {
	Create(ctx context.Context, tx *sql.Tx, user *model.User) error
	Update(ctx context.Context, tx *sql.Tx, user *model.User) error
	Delete(ctx context.Context, id string) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByHandle(ctx context.Context, handle string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, q model.ListQuery) ([]model.User, int, error)
}

type sqlUserRepository struct {
	sqlBase
}

func NewUserRepository(db *sql.DB, dialect database.Dialect) UserRepository {
	return &sqlUserRepository{sqlBase{db: db, dialect: dialect}}
}

const userColumns = `id, name, handle, email, hashed_password, role, status, created_at, updated_at`

var userSortColumns = map[string]string{
	"email":      "email",
	"name":       "name",
	"handle":     "handle",
	"role":       "role",
	"status":     "status",
	"created_at": "created_at",
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Name, &user.Handle, &user.Email, &user.HashedPassword,
		&user.Role, &user.Status, &user.CreatedAt, &user.UpdatedAt,
	)
	return user, err
}

func (r *sqlUserRepository) Create(ctx context.Context, tx *sql.Tx, user *model.User) error {
	query := `INSERT INTO users (` + userColumns + `)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.conn(tx).ExecContext(ctx, r.q(query),
		user.ID, user.Name, user.Handle, user.Email, user.HashedPassword,
		user.Role, user.Status, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("sqlUserRepository.Create: %w", err)
	}
	return nil
}

func (r *sqlUserRepository) Update(ctx context.Context, tx *sql.Tx, user *model.User) error {
	query := `UPDATE users SET
	            name = ?, handle = ?, email = ?, hashed_password = ?, role = ?, status = ?, updated_at = ?
	          WHERE id = ?`
	res, err := r.conn(tx).ExecContext(ctx, r.q(query),
		user.Name, user.Handle, user.Email, user.HashedPassword, user.Role, user.Status, user.UpdatedAt, user.ID,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("user with given email already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("sqlUserRepository.Update: %w", err)
	}
	return checkAffected(res, "sqlUserRepository.Update")
}

func (r *sqlUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("sqlUserRepository.Delete: %w", err)
	}
	return checkAffected(res, "sqlUserRepository.Delete")
}

func (r *sqlUserRepository) findOne(ctx context.Context, where, arg, caller string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where + ` = ?`
	user, err := scanUser(r.db.QueryRowContext(ctx, r.q(query), arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sqlUserRepository.%s: %w", caller, err)
	}
	return user, nil
}

func (r *sqlUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, "email", email, "FindByEmail")
}

func (r *sqlUserRepository) FindByHandle(ctx context.Context, handle string) (*model.User, error) {
	return r.findOne(ctx, "handle", handle, "FindByHandle")
}

func (r *sqlUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, "id", id, "FindByID")
}

func (r *sqlUserRepository) List(ctx context.Context, q model.ListQuery) ([]model.User, int, error) {
	q = q.Normalize(model.UsersTable)
	order, err := orderClause(model.UsersTable, q, userSortColumns)
	if err != nil {
		return nil, 0, err
	}

	where := ""
	var args []interface{}
	if q.Search != "" {
		where = ` WHERE LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(handle) LIKE ?`
		p := likePattern(q.Search)
		args = append(args, p, p, p)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM users`+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlUserRepository.List count: %w", err)
	}

	query := `SELECT ` + userColumns + ` FROM users` + where + order
	if !q.All {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.PageSize, q.Offset())
	}
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlUserRepository.List: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlUserRepository.List scan: %w", err)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlUserRepository.List rows: %w", err)
	}
	return users, total, nil
}
