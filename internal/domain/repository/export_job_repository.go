package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/platform/database"
)

type ExportJobRepository interface {
	CreateJob(ctx context.Context, tx *sql.Tx, job *model.ExportJob) error
	GetJobByID(ctx context.Context, id string) (*model.ExportJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status string, lastError *string) error
	IncrementJobAttempts(ctx context.Context, jobID string) error
	CompleteJob(ctx context.Context, jobID string, result string) error
}

type sqlExportJobRepository struct {
	sqlBase
}

func NewExportJobRepository(db *sql.DB, dialect database.Dialect) ExportJobRepository {
	return &sqlExportJobRepository{sqlBase{db: db, dialect: dialect}}
}

func (r *sqlExportJobRepository) CreateJob(ctx context.Context, tx *sql.Tx, job *model.ExportJob) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal export params: %w", err)
	}
	query := `INSERT INTO export_jobs (id, requested_by, resource, params, status, attempts, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.conn(tx).ExecContext(ctx, r.q(query),
		job.ID, job.RequestedBy, job.Resource, string(params), job.Status, job.Attempts, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlExportJobRepository.CreateJob: %w", err)
	}
	return nil
}

func (r *sqlExportJobRepository) GetJobByID(ctx context.Context, id string) (*model.ExportJob, error) {
	query := `SELECT id, requested_by, resource, params, status, attempts, last_error, result, created_at, updated_at
	          FROM export_jobs WHERE id = ?`
	job := &model.ExportJob{}
	var params string
	var lastError, result sql.NullString
	err := r.db.QueryRowContext(ctx, r.q(query), id).Scan(
		&job.ID, &job.RequestedBy, &job.Resource, &params, &job.Status, &job.Attempts,
		&lastError, &result, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sqlExportJobRepository.GetJobByID: %w", err)
	}
	if err := json.Unmarshal([]byte(params), &job.Params); err != nil {
		return nil, fmt.Errorf("export job %s has malformed params: %w", id, err)
	}
	if lastError.Valid {
		job.LastError = &lastError.String
	}
	if result.Valid {
		job.Result = &result.String
	}
	return job, nil
}

func (r *sqlExportJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status string, lastError *string) error {
	query := `UPDATE export_jobs SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.q(query), status, lastError, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("sqlExportJobRepository.UpdateJobStatus: %w", err)
	}
	return checkAffected(res, "sqlExportJobRepository.UpdateJobStatus")
}

func (r *sqlExportJobRepository) IncrementJobAttempts(ctx context.Context, jobID string) error {
	query := `UPDATE export_jobs SET attempts = attempts + 1, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.q(query), time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("sqlExportJobRepository.IncrementJobAttempts: %w", err)
	}
	return checkAffected(res, "sqlExportJobRepository.IncrementJobAttempts")
}

func (r *sqlExportJobRepository) CompleteJob(ctx context.Context, jobID string, result string) error {
	query := `UPDATE export_jobs SET status = ?, result = ?, last_error = NULL, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, r.q(query), model.JobStatusCompleted, result, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("sqlExportJobRepository.CompleteJob: %w", err)
	}
	return checkAffected(res, "sqlExportJobRepository.CompleteJob")
}
