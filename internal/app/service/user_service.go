package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"labdesk/internal/common"
	"labdesk/internal/common/security"
	"labdesk/internal/domain/model"
	"labdesk/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type UserService struct {
	userRepo     repository.UserRepository
	feedbackRepo repository.FeedbackRepository
	sessions     *SessionStore
	counters     *CounterService
	db           *sql.DB
}

func NewUserService(userRepo repository.UserRepository, feedbackRepo repository.FeedbackRepository, sessions *SessionStore, counters *CounterService, db *sql.DB) *UserService {
	return &UserService{userRepo: userRepo, feedbackRepo: feedbackRepo, sessions: sessions, counters: counters, db: db}
}

type UpdateProfileRequest struct {
	Name            string `json:"name" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	CurrentPassword string `json:"current_password,omitempty"`
	NewPassword     string `json:"new_password,omitempty" validate:"omitempty,min=6"`
	ConfirmPassword string `json:"confirm_password,omitempty" validate:"eqfield=NewPassword"`
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userRepo.FindByEmail(ctx, common.NormalizeEmail(email))
}

func (s *UserService) GetByHandle(ctx context.Context, handle string) (*model.User, error) {
	return s.userRepo.FindByHandle(ctx, handle)
}

// UpdateProfile edits the caller's own name, email and optionally password.
// Feedback written under the old email follows the change in the same transaction.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest) (*model.User, error) {
	req.Name = common.NormalizeName(req.Name)
	req.Email = common.NormalizeEmail(req.Email)
	if err := common.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			return nil, common.NewFieldError("current_password", "is required")
		}
		if !security.CheckPasswordHash(req.CurrentPassword, user.HashedPassword) {
			return nil, common.NewFieldError("current_password", "is incorrect")
		}
		hashed, err := security.HashPassword(req.NewPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.HashedPassword = hashed
	}

	if req.Email != user.Email {
		other, err := s.userRepo.FindByEmail(ctx, req.Email)
		if err == nil && other.ID != user.ID {
			return nil, fmt.Errorf("email %s is taken: %w", req.Email, common.ErrConflict)
		}
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}
	if req.Name != user.Name {
		handle, err := uniqueHandle(ctx, s.userRepo, req.Name, user.ID)
		if err != nil {
			return nil, err
		}
		user.Handle = handle
	}

	oldName, oldEmail := user.Name, user.Email
	user.Name = req.Name
	user.Email = req.Email
	user.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.userRepo.Update(ctx, tx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if oldName != user.Name || oldEmail != user.Email {
		n, err := s.feedbackRepo.RewriteAuthor(ctx, tx, oldEmail, user.Name, user.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to update authored feedback: %w", err)
		}
		zap.L().Info("Rewrote feedback author", zap.String("user_id", user.ID), zap.Int64("feedback", n))
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit profile update: %w", err)
	}

	s.refreshSessions(ctx, user)
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context, q model.ListQuery) (*model.Page[model.User], error) {
	q = q.Normalize(model.UsersTable)
	users, total, err := s.userRepo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &model.Page[model.User]{Items: users, Total: total, Page: q.Page, PageSize: q.PageSize}, nil
}

func (s *UserService) CreateUser(ctx context.Context, req CreateUserRequest) (*model.User, error) {
	req.Name = common.NormalizeName(req.Name)
	req.Email = common.NormalizeEmail(req.Email)
	if req.Role == "" {
		req.Role = model.RoleUser
	}
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("user with email %s already exists: %w", req.Email, common.ErrConflict)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	user, err := newUser(ctx, s.userRepo, req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// ToggleBlock flips the target between active and blocked.
func (s *UserService) ToggleBlock(ctx context.Context, actor *model.CurrentUser, targetID string) (*model.User, error) {
	if actor.ID == targetID {
		return nil, fmt.Errorf("cannot block yourself: %w", common.ErrForbidden)
	}
	user, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked() {
		user.Status = model.UserStatusActive
	} else {
		user.Status = model.UserStatusBlocked
	}
	user.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	zap.L().Info("User status changed",
		zap.String("actor_id", actor.ID), zap.String("user_id", user.ID), zap.String("status", user.Status))
	s.refreshSessions(ctx, user)
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, targetID string, req ChangePasswordRequest) error {
	if err := common.Validate(req); err != nil {
		return err
	}
	user, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return err
	}
	hashed, err := security.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = hashed
	user.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	if err := s.sessions.RevokeUser(ctx, user.ID); err != nil {
		zap.L().Error("Failed to revoke sessions after password change", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// DeleteUser removes the target, ends their sessions and drops their counter.
// Their feedback stays.
func (s *UserService) DeleteUser(ctx context.Context, actor *model.CurrentUser, targetID string) error {
	if actor.ID == targetID {
		return fmt.Errorf("cannot delete yourself: %w", common.ErrForbidden)
	}
	if err := s.userRepo.Delete(ctx, targetID); err != nil {
		return err
	}
	if err := s.sessions.RevokeUser(ctx, targetID); err != nil {
		zap.L().Error("Failed to revoke sessions of deleted user", zap.String("user_id", targetID), zap.Error(err))
	}
	if err := s.counters.Forget(ctx, targetID); err != nil {
		zap.L().Error("Failed to drop counter of deleted user", zap.String("user_id", targetID), zap.Error(err))
	}
	zap.L().Info("User deleted", zap.String("actor_id", actor.ID), zap.String("user_id", targetID))
	return nil
}

func (s *UserService) refreshSessions(ctx context.Context, user *model.User) {
	if err := s.sessions.Refresh(ctx, user); err != nil {
		zap.L().Error("Failed to refresh sessions", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// uniqueHandle slugs name and adds a short random suffix while the slug is
// held by a user other than selfID.
func uniqueHandle(ctx context.Context, repo repository.UserRepository, name, selfID string) (string, error) {
	base := slug.Make(name)
	if base == "" {
		base = "user"
	}
	handle := base
	for i := 0; i < 5; i++ {
		existing, err := repo.FindByHandle(ctx, handle)
		if errors.Is(err, common.ErrNotFound) || (err == nil && existing.ID == selfID) {
			return handle, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check handle: %w", err)
		}
		handle = base + "-" + uuid.NewString()[:8]
	}
	return "", fmt.Errorf("could not find a free handle for %q: %w", name, common.ErrConflict)
}
