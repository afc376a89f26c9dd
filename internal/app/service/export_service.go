package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/domain/repository"
	"labdesk/internal/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type ExportService struct {
	jobRepo     repository.ExportJobRepository
	preferences *PreferenceService
	rdb         *redis.Client
	db          *sql.DB
}

func NewExportService(jobRepo repository.ExportJobRepository, preferences *PreferenceService, rdb *redis.Client, db *sql.DB) *ExportService {
	return &ExportService{jobRepo: jobRepo, preferences: preferences, rdb: rdb, db: db}
}

type ExportRequest struct {
	Resource string `json:"resource" validate:"required,oneof=users feedback"`
	Search   string `json:"search,omitempty"`
	SortBy   string `json:"sort_by,omitempty"`
	Order    string `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
}

// Enqueue records an export of the requested table, in the requester's
// column order, and pushes its id onto the export queue.
func (s *ExportService) Enqueue(ctx context.Context, actor *model.CurrentUser, req ExportRequest) (*model.ExportJob, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	table, _ := model.LookupTable(req.Resource)
	if req.SortBy != "" {
		if col, ok := table.Column(req.SortBy); !ok || !col.Sortable {
			return nil, common.NewFieldError("sort_by", fmt.Sprintf("cannot sort %s by %q", table.Name, req.SortBy))
		}
	}
	columns, err := s.preferences.ColumnOrder(ctx, actor.ID, table)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &model.ExportJob{
		ID:          uuid.NewString(),
		RequestedBy: actor.ID,
		Resource:    table.Name,
		Params:      model.ExportParams{Search: req.Search, SortBy: req.SortBy, Order: req.Order, Columns: columns},
		Status:      model.JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction for export job: %w", err)
	}
	defer tx.Rollback()

	if err := s.jobRepo.CreateJob(ctx, tx, job); err != nil {
		return nil, common.Errorf("failed to create export job in DB: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit export job: %w", err)
	}
	// The worker may pop the id at once, so the row must be committed first.
	if err := s.rdb.LPush(ctx, config.AppConfig.ExportQueueName, job.ID).Err(); err != nil {
		reason := "could not be queued: " + err.Error()
		if uerr := s.jobRepo.UpdateJobStatus(context.WithoutCancel(ctx), job.ID, model.JobStatusFailed, &reason); uerr != nil {
			zap.L().Error("Failed to mark unqueued export job", zap.String("job_id", job.ID), zap.Error(uerr))
		}
		return nil, common.Errorf("failed to push export job to queue: %w", err)
	}

	zap.L().Info("Export job enqueued", zap.String("job_id", job.ID), zap.String("resource", job.Resource))
	return job, nil
}

func (s *ExportService) Get(ctx context.Context, id string) (*model.ExportJob, error) {
	return s.jobRepo.GetJobByID(ctx, id)
}

// Download returns the rendered CSV of a completed job.
func (s *ExportService) Download(ctx context.Context, id string) (*model.ExportJob, string, error) {
	job, err := s.jobRepo.GetJobByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	switch {
	case job.Status == model.JobStatusFailed:
		reason := ""
		if job.LastError != nil {
			reason = *job.LastError
		}
		return nil, "", fmt.Errorf("export %s failed: %s: %w", id, reason, common.ErrNotReady)
	case job.Status != model.JobStatusCompleted || job.Result == nil:
		return nil, "", fmt.Errorf("export %s is %s: %w", id, job.Status, common.ErrNotReady)
	}
	return job, *job.Result, nil
}
