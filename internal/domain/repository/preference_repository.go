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

	"go.uber.org/zap"
)

type PreferenceRepository interface {
	// Get returns common.ErrNotFound when the user never saved preferences.
	Get(ctx context.Context, userID string) (*model.Preferences, error)
	Save(ctx context.Context, p *model.Preferences) error
}

type sqlPreferenceRepository struct {
	sqlBase
}

func NewPreferenceRepository(db *sql.DB, dialect database.Dialect) PreferenceRepository {
	return &sqlPreferenceRepository{sqlBase{db: db, dialect: dialect}}
}

func (r *sqlPreferenceRepository) Get(ctx context.Context, userID string) (*model.Preferences, error) {
	var theme, columns string
	err := r.db.QueryRowContext(ctx, r.q(`SELECT theme, columns FROM user_preferences WHERE user_id = ?`), userID).
		Scan(&theme, &columns)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("sqlPreferenceRepository.Get: %w", err)
	}

	p := model.DefaultPreferences(userID)
	if t := model.Theme(theme); t.Valid() {
		p.Theme = t
	}
	if err := json.Unmarshal([]byte(columns), &p.Columns); err != nil || p.Columns == nil {
		zap.L().Warn("Discarding malformed column preferences",
			zap.String("user_id", userID), zap.String("raw", columns), zap.Error(err))
		p.Columns = map[string][]string{}
	}
	return p, nil
}

func (r *sqlPreferenceRepository) Save(ctx context.Context, p *model.Preferences) error {
	columns, err := json.Marshal(p.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal column preferences: %w", err)
	}
	query := `INSERT INTO user_preferences (user_id, theme, columns, updated_at) VALUES (?, ?, ?, ?)
	          ON CONFLICT (user_id) DO UPDATE SET theme = excluded.theme, columns = excluded.columns, updated_at = excluded.updated_at`
	if _, err := r.db.ExecContext(ctx, r.q(query), p.UserID, string(p.Theme), string(columns), time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlPreferenceRepository.Save: %w", err)
	}
	return nil
}
