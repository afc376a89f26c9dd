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

type FeedbackRepository interface {
	Create(ctx context.Context, f *model.Feedback) error
	// Update rewrites author, email, rating and message. Date and timestamp are never touched.
	Update(ctx context.Context, f *model.Feedback) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*model.Feedback, error)
	// Exists reports whether email already wrote exactly message.
	Exists(ctx context.Context, email, message string) (bool, error)
	List(ctx context.Context, q model.ListQuery) ([]model.Feedback, int, error)
	// RewriteAuthor renames every feedback written under oldEmail.
	RewriteAuthor(ctx context.Context, tx *sql.Tx, oldEmail, author, email string) (int64, error)
}

type sqlFeedbackRepository struct {
	sqlBase
}

func NewFeedbackRepository(db *sql.DB, dialect database.Dialect) FeedbackRepository {
	return &sqlFeedbackRepository{sqlBase{db: db, dialect: dialect}}
}

const feedbackColumns = `id, author, email, rating, message, display_date, created_ms, updated_at`

var feedbackSortColumns = map[string]string{
	"author": "author",
	"email":  "email",
	"rating": "rating",
	// display_date is DD.MM.YYYY text; chronological order comes from the timestamp.
	"date": "created_ms",
}

func scanFeedback(row rowScanner) (*model.Feedback, error) {
	f := &model.Feedback{}
	err := row.Scan(&f.ID, &f.Author, &f.Email, &f.Rating, &f.Message, &f.Date, &f.Timestamp, &f.UpdatedAt)
	return f, err
}

func (r *sqlFeedbackRepository) Create(ctx context.Context, f *model.Feedback) error {
	query := `INSERT INTO feedback (` + feedbackColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.q(query),
		f.ID, f.Author, f.Email, f.Rating, f.Message, f.Date, f.Timestamp, f.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("feedback %s already exists: %w", f.ID, common.ErrConflict)
		}
		return fmt.Errorf("sqlFeedbackRepository.Create: %w", err)
	}
	return nil
}

func (r *sqlFeedbackRepository) Update(ctx context.Context, f *model.Feedback) error {
	query := `UPDATE feedback SET author = ?, email = ?, rating = ?, message = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.q(query), f.Author, f.Email, f.Rating, f.Message, f.UpdatedAt, f.ID)
	if err != nil {
		return fmt.Errorf("sqlFeedbackRepository.Update: %w", err)
	}
	return checkAffected(res, "sqlFeedbackRepository.Update")
}

func (r *sqlFeedbackRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.q(`DELETE FROM feedback WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("sqlFeedbackRepository.Delete: %w", err)
	}
	return checkAffected(res, "sqlFeedbackRepository.Delete")
}

func (r *sqlFeedbackRepository) FindByID(ctx context.Context, id string) (*model.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE id = ?`
	f, err := scanFeedback(r.db.QueryRowContext(ctx, r.q(query), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sqlFeedbackRepository.FindByID: %w", err)
	}
	return f, nil
}

func (r *sqlFeedbackRepository) Exists(ctx context.Context, email, message string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, r.q(`SELECT 1 FROM feedback WHERE email = ? AND message = ? LIMIT 1`), email, message).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlFeedbackRepository.Exists: %w", err)
	}
	return true, nil
}

func (r *sqlFeedbackRepository) List(ctx context.Context, q model.ListQuery) ([]model.Feedback, int, error) {
	q = q.Normalize(model.FeedbackTable)
	order, err := orderClause(model.FeedbackTable, q, feedbackSortColumns)
	if err != nil {
		return nil, 0, err
	}

	where := ""
	var args []interface{}
	if q.Search != "" {
		where = ` WHERE LOWER(author) LIKE ? OR LOWER(email) LIKE ? OR LOWER(message) LIKE ?`
		p := likePattern(q.Search)
		args = append(args, p, p, p)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, r.q(`SELECT COUNT(*) FROM feedback`+where), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sqlFeedbackRepository.List count: %w", err)
	}

	query := `SELECT ` + feedbackColumns + ` FROM feedback` + where + order
	if !q.All {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.PageSize, q.Offset())
	}
	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("sqlFeedbackRepository.List: %w", err)
	}
	defer rows.Close()

	items := []model.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("sqlFeedbackRepository.List scan: %w", err)
		}
		items = append(items, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("sqlFeedbackRepository.List rows: %w", err)
	}
	return items, total, nil
}

func (r *sqlFeedbackRepository) RewriteAuthor(ctx context.Context, tx *sql.Tx, oldEmail, author, email string) (int64, error) {
	query := `UPDATE feedback SET author = ?, email = ? WHERE email = ?`
	res, err := r.conn(tx).ExecContext(ctx, r.q(query), author, email, oldEmail)
	if err != nil {
		return 0, fmt.Errorf("sqlFeedbackRepository.RewriteAuthor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlFeedbackRepository.RewriteAuthor: rows affected: %w", err)
	}
	return n, nil
}
