package service

import (
	"context"
	"errors"
	"fmt"

	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/domain/repository"
)

type PreferenceService struct {
	prefRepo repository.PreferenceRepository
}

func NewPreferenceService(prefRepo repository.PreferenceRepository) *PreferenceService {
	return &PreferenceService{prefRepo: prefRepo}
}

type ThemeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}

type ColumnOrderRequest struct {
	Columns []string `json:"columns" validate:"required"`
}

type MoveColumnRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Get returns the user's preferences with a resolved column order for every table.
func (s *PreferenceService) Get(ctx context.Context, userID string) (*model.Preferences, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return resolved(p), nil
}

func (s *PreferenceService) ToggleTheme(ctx context.Context, userID string) (*model.Preferences, error) {
	return s.update(ctx, userID, func(p *model.Preferences) error {
		p.Theme = p.Theme.Toggled()
		return nil
	})
}

func (s *PreferenceService) SetTheme(ctx context.Context, userID string, req ThemeRequest) (*model.Preferences, error) {
	if err := common.Validate(req); err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(p *model.Preferences) error {
		p.Theme = model.Theme(req.Theme)
		return nil
	})
}

// SetColumnOrder stores order for table. It must name every column exactly once.
func (s *PreferenceService) SetColumnOrder(ctx context.Context, userID, tableName string, req ColumnOrderRequest) (*model.Preferences, error) {
	table, err := lookupTable(tableName)
	if err != nil {
		return nil, err
	}
	if !table.IsPermutation(req.Columns) {
		return nil, common.NewFieldError("columns", "must list every column of "+table.Name+" exactly once")
	}
	return s.update(ctx, userID, func(p *model.Preferences) error {
		p.Columns[table.Name] = append([]string(nil), req.Columns...)
		return nil
	})
}

// MoveColumn drags the column at index From to index To.
func (s *PreferenceService) MoveColumn(ctx context.Context, userID, tableName string, req MoveColumnRequest) (*model.Preferences, error) {
	table, err := lookupTable(tableName)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(p *model.Preferences) error {
		order, err := model.MoveColumn(p.ColumnOrder(table), req.From, req.To)
		if err != nil {
			return common.NewFieldError("from", err.Error())
		}
		p.Columns[table.Name] = order
		return nil
	})
}

func (s *PreferenceService) ResetColumns(ctx context.Context, userID, tableName string) (*model.Preferences, error) {
	table, err := lookupTable(tableName)
	if err != nil {
		return nil, err
	}
	return s.update(ctx, userID, func(p *model.Preferences) error {
		delete(p.Columns, table.Name)
		return nil
	})
}

// ColumnOrder is the order the user sees table's columns in.
func (s *PreferenceService) ColumnOrder(ctx context.Context, userID string, table *model.Table) ([]string, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.ColumnOrder(table), nil
}

func (s *PreferenceService) load(ctx context.Context, userID string) (*model.Preferences, error) {
	p, err := s.prefRepo.Get(ctx, userID)
	if errors.Is(err, common.ErrNotFound) {
		return model.DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	return p, nil
}

func (s *PreferenceService) update(ctx context.Context, userID string, mutate func(*model.Preferences) error) (*model.Preferences, error) {
	p, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := mutate(p); err != nil {
		return nil, err
	}
	if err := s.prefRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	return resolved(p), nil
}

func resolved(p *model.Preferences) *model.Preferences {
	out := &model.Preferences{UserID: p.UserID, Theme: p.Theme, Columns: map[string][]string{}}
	for _, t := range []*model.Table{model.UsersTable, model.FeedbackTable} {
		out.Columns[t.Name] = p.ColumnOrder(t)
	}
	return out
}

func lookupTable(name string) (*model.Table, error) {
	table, ok := model.LookupTable(name)
	if !ok {
		return nil, fmt.Errorf("unknown table %q: %w", name, common.ErrNotFound)
	}
	return table, nil
}
