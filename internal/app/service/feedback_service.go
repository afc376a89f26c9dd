package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/domain/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type FeedbackService struct {
	feedbackRepo repository.FeedbackRepository
	now          func() time.Time
}

func NewFeedbackService(feedbackRepo repository.FeedbackRepository) *FeedbackService {
	return &FeedbackService{feedbackRepo: feedbackRepo, now: time.Now}
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Message string `json:"message" validate:"required,min=10"`
}

func (s *FeedbackService) List(ctx context.Context, q model.ListQuery) (*model.Page[model.Feedback], error) {
	q = q.Normalize(model.FeedbackTable)
	items, total, err := s.feedbackRepo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &model.Page[model.Feedback]{Items: items, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *FeedbackService) Get(ctx context.Context, id string) (*model.Feedback, error) {
	return s.feedbackRepo.FindByID(ctx, id)
}

// Create records feedback under the author's current name and email.
func (s *FeedbackService) Create(ctx context.Context, author *model.CurrentUser, req FeedbackRequest) (*model.Feedback, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	now := s.now()
	f := &model.Feedback{
		ID:        uuid.NewString(),
		Author:    author.Name,
		Email:     author.Email,
		Rating:    req.Rating,
		Message:   req.Message,
		Date:      model.DisplayDate(now),
		Timestamp: now.UnixMilli(),
		UpdatedAt: now.UTC().Truncate(time.Microsecond),
	}
	if err := s.feedbackRepo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to create feedback: %w", err)
	}
	zap.L().Info("Feedback created", zap.String("feedback_id", f.ID), zap.String("email", f.Email))
	return f, nil
}

// Exists reports whether the author behind email already posted message.
func (s *FeedbackService) Exists(ctx context.Context, email, message string) (bool, error) {
	return s.feedbackRepo.Exists(ctx, common.NormalizeEmail(email), strings.TrimSpace(message))
}

// Update replaces rating and message. Date and timestamp keep their creation values.
func (s *FeedbackService) Update(ctx context.Context, actor *model.CurrentUser, id string, req FeedbackRequest) (*model.Feedback, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	f, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	f.Rating = req.Rating
	f.Message = req.Message
	f.UpdatedAt = s.now().UTC().Truncate(time.Microsecond)
	if err := s.feedbackRepo.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("failed to update feedback: %w", err)
	}
	return f, nil
}

func (s *FeedbackService) Delete(ctx context.Context, actor *model.CurrentUser, id string) error {
	if _, err := s.editable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.feedbackRepo.Delete(ctx, id); err != nil {
		return err
	}
	zap.L().Info("Feedback deleted", zap.String("feedback_id", id), zap.String("actor_id", actor.ID))
	return nil
}

// editable loads feedback the actor may change: their own, or any for admins.
func (s *FeedbackService) editable(ctx context.Context, actor *model.CurrentUser, id string) (*model.Feedback, error) {
	f, err := s.feedbackRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && !f.WrittenBy(actor.Email) {
		return nil, fmt.Errorf("feedback %s belongs to another user: %w", id, common.ErrForbidden)
	}
	return f, nil
}
