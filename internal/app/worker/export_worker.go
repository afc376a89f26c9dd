package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"labdesk/internal/app/export"
	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/domain/repository"
	"labdesk/internal/platform/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseLock deletes the lock only while it still holds our value.
var releaseLock = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

// MinPollTimeout is the smallest blocking timeout Redis accepts.
const MinPollTimeout = time.Second

type ExportWorker struct {
	rdb      *redis.Client
	jobRepo  repository.ExportJobRepository
	exporter *export.Exporter
	// PollTimeout bounds each blocking pop so shutdown is noticed.
	// Values below MinPollTimeout are raised to it.
	PollTimeout time.Duration
}

func NewExportWorker(rdb *redis.Client, jobRepo repository.ExportJobRepository, exporter *export.Exporter) *ExportWorker {
	return &ExportWorker{
		rdb:         rdb,
		jobRepo:     jobRepo,
		exporter:    exporter,
		PollTimeout: 2 * time.Second,
	}
}

// ProcessingQueue holds the ids taken off queue that are not settled yet.
func ProcessingQueue(queue string) string { return queue + ":processing" }

// Start processes export jobs one at a time until ctx is cancelled.
// A popped id stays on the processing list until its job is settled, so a
// stop or crash mid-job never loses it.
func (w *ExportWorker) Start(ctx context.Context) error {
	queue := config.AppConfig.ExportQueueName
	processing := ProcessingQueue(queue)
	timeout := w.PollTimeout
	if timeout < MinPollTimeout {
		timeout = MinPollTimeout
	}
	zap.L().Info("Export worker started", zap.String("queue", queue))
	w.recoverOrphans()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Export worker stopping")
			return nil
		default:
		}

		jobID, err := w.rdb.BLMove(ctx, queue, processing, "RIGHT", "LEFT", timeout).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			zap.L().Error("Failed to pop from export queue", zap.String("queue", queue), zap.Error(err))
			w.sleep(ctx, 5*time.Second)
			continue
		}
		if jobID == "" {
			zap.L().Warn("Export queue returned empty job ID")
			w.ackJob("")
			continue
		}
		w.processJobWithLock(ctx, jobID)
	}
}

// recoverOrphans puts ids left on the processing list by a previous run back on the queue.
func (w *ExportWorker) recoverOrphans() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ids, err := w.rdb.LRange(ctx, ProcessingQueue(config.AppConfig.ExportQueueName), 0, -1).Result()
	if err != nil {
		zap.L().Error("Failed to list unfinished export jobs", zap.Error(err))
		return
	}
	for _, id := range ids {
		zap.L().Warn("Re-queueing unfinished export job", zap.String("job_id", id))
		w.requeueJob(id)
	}
}

func (w *ExportWorker) processJobWithLock(ctx context.Context, jobID string) {
	lockKey := config.AppConfig.ExportLockKey
	lockValue := uuid.NewString()
	lockTTL := time.Duration(config.AppConfig.ExportLockTTLSeconds) * time.Second

	ok, err := w.rdb.SetNX(ctx, lockKey, lockValue, lockTTL).Result()
	if err != nil {
		zap.L().Error("Failed to attempt export lock", zap.String("job_id", jobID), zap.Error(err))
		w.requeueJob(jobID)
		return
	}
	if !ok {
		zap.L().Info("Export lock busy, re-queueing", zap.String("job_id", jobID))
		w.requeueJob(jobID)
		// Let the holder finish before this job comes round again.
		w.sleep(ctx, time.Second)
		return
	}

	defer func() {
		// The job may have outlived ctx; release on a fresh context.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		deleted, err := releaseLock.Run(rctx, w.rdb, []string{lockKey}, lockValue).Int64()
		switch {
		case err != nil:
			zap.L().Error("Failed to release export lock", zap.String("job_id", jobID), zap.Error(err))
		case deleted == 0:
			zap.L().Warn("Export lock expired before release", zap.String("job_id", jobID))
		}
	}()

	if err := w.handleJob(ctx, jobID); err != nil {
		zap.L().Warn("Export job interrupted, re-queueing", zap.String("job_id", jobID), zap.Error(err))
		w.resetJob(jobID)
		w.requeueJob(jobID)
		return
	}
	w.ackJob(jobID)
}

// requeueJob moves jobID from the processing list back to the head of the queue.
// It runs on its own context so it still works while the worker shuts down.
func (w *ExportWorker) requeueJob(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	queue := config.AppConfig.ExportQueueName
	pipe := w.rdb.TxPipeline()
	pipe.LRem(ctx, ProcessingQueue(queue), 1, jobID)
	pipe.RPush(ctx, queue, jobID)
	if _, err := pipe.Exec(ctx); err != nil {
		zap.L().Error("Failed to re-queue export job", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (w *ExportWorker) ackJob(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.rdb.LRem(ctx, ProcessingQueue(config.AppConfig.ExportQueueName), 1, jobID).Err(); err != nil {
		zap.L().Error("Failed to acknowledge export job", zap.String("job_id", jobID), zap.Error(err))
	}
}

// resetJob marks an interrupted job as queued again.
func (w *ExportWorker) resetJob(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := w.jobRepo.UpdateJobStatus(ctx, jobID, model.JobStatusQueued, nil)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		zap.L().Error("Failed to reset export job", zap.String("job_id", jobID), zap.Error(err))
	}
}

// handleJob runs one job to a settled state: completed, failed, skipped or dropped.
// A non-nil error means the job was interrupted and must run again.
func (w *ExportWorker) handleJob(ctx context.Context, jobID string) error {
	log := zap.L().With(zap.String("job_id", jobID))

	job, err := w.jobRepo.GetJobByID(ctx, jobID)
	if errors.Is(err, common.ErrNotFound) {
		log.Warn("Export job does not exist, dropping")
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch export job: %w", err)
	}
	if job.Finished() {
		log.Warn("Export job already finished, skipping", zap.String("status", job.Status))
		return nil
	}
	if err := w.jobRepo.IncrementJobAttempts(ctx, job.ID); err != nil {
		log.Error("Failed to count export attempt", zap.Error(err))
	}
	if err := w.jobRepo.UpdateJobStatus(ctx, job.ID, model.JobStatusProcessing, nil); err != nil {
		log.Error("Failed to mark export job processing", zap.Error(err))
	}

	var buf bytes.Buffer
	if err := w.exporter.Render(ctx, &buf, job.Resource, job.Params); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("render %s: %w", job.Resource, err)
		}
		errMsg := fmt.Sprintf("render %s: %v", job.Resource, err)
		log.Error("Export job failed", zap.String("reason", errMsg))
		if err := w.jobRepo.UpdateJobStatus(ctx, job.ID, model.JobStatusFailed, &errMsg); err != nil {
			return fmt.Errorf("mark export job failed: %w", err)
		}
		return nil
	}
	if err := w.jobRepo.CompleteJob(ctx, job.ID, buf.String()); err != nil {
		return fmt.Errorf("store export result: %w", err)
	}
	log.Info("Export job completed", zap.String("resource", job.Resource), zap.Int("bytes", buf.Len()))
	return nil
}

func (w *ExportWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
