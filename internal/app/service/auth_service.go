package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"labdesk/internal/common"
	"labdesk/internal/common/security"
	"labdesk/internal/domain/model"
	"labdesk/internal/domain/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthService struct {
	userRepo repository.UserRepository
	sessions *SessionStore
}

func NewAuthService(userRepo repository.UserRepository, sessions *SessionStore) *AuthService {
	return &AuthService{userRepo: userRepo, sessions: sessions}
}

type RegisterRequest struct {
	Name            string `json:"name" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a regular user and logs them in.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Name = common.NormalizeName(req.Name)
	req.Email = common.NormalizeEmail(req.Email)
	if err := common.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("user with email %s already exists: %w", req.Email, common.ErrConflict)
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	user, err := newUser(ctx, s.userRepo, req.Name, req.Email, req.Password, model.RoleUser)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	zap.L().Info("User registered", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return s.openSession(ctx, user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	req.Email = common.NormalizeEmail(req.Email)
	if err := common.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("invalid email or password: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, fmt.Errorf("invalid email or password: %w", common.ErrUnauthorized)
	}
	if user.IsBlocked() {
		return nil, fmt.Errorf("account is blocked: %w", common.ErrForbidden)
	}
	return s.openSession(ctx, user)
}

func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Delete(ctx, sessionID)
}

func (s *AuthService) Current(ctx context.Context, sessionID string) (*model.CurrentUser, error) {
	return s.sessions.Get(ctx, sessionID)
}

// EnsureAdmin creates the bootstrap administrator unless a user with that
// email already exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	email = common.NormalizeEmail(email)
	if email == "" {
		return nil
	}
	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}
	if len(password) < 6 {
		return fmt.Errorf("admin password must be at least 6 characters: %w", common.ErrValidation)
	}

	user, err := newUser(ctx, s.userRepo, common.NormalizeName(name), email, password, model.RoleAdmin)
	if err != nil {
		return err
	}
	if err := s.userRepo.Create(ctx, nil, user); err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	zap.L().Info("Bootstrap admin created", zap.String("email", email))
	return nil
}

func (s *AuthService) openSession(ctx context.Context, user *model.User) (*AuthResponse, error) {
	sid, err := s.sessions.Open(ctx, user)
	if err != nil {
		return nil, err
	}
	token, err := security.GenerateToken(user.ID, user.Role, sid)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{User: user, Token: token}, nil
}

// newUser builds an active user with a hashed password and a free handle.
func newUser(ctx context.Context, repo repository.UserRepository, name, email, password, role string) (*model.User, error) {
	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	handle, err := uniqueHandle(ctx, repo, name, "")
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		Handle:         handle,
		Email:          email,
		HashedPassword: hashedPassword,
		Role:           role,
		Status:         model.UserStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}
