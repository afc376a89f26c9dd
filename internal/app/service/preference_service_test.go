package service_test

import (
	"context"
	"testing"

	"labdesk/internal/app/service"
	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/testenv"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferences_DefaultsAndThemeToggle(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	uid := env.Register(t, "Ann", "ann@example.com").User.ID

	p, err := env.Preferences.Get(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeLight, p.Theme)
	assert.Equal(t, model.FeedbackTable.DefaultOrder(), p.Columns[model.TableFeedback])

	p, err = env.Preferences.ToggleTheme(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, p.Theme)
	p, err = env.Preferences.ToggleTheme(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeLight, p.Theme)

	p, err = env.Preferences.SetTheme(ctx, uid, service.ThemeRequest{Theme: "dark"})
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, p.Theme)

	_, err = env.Preferences.SetTheme(ctx, uid, service.ThemeRequest{Theme: "sepia"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestPreferences_ColumnOrder(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	uid := env.Register(t, "Ann", "ann@example.com").User.ID

	_, err := env.Preferences.SetColumnOrder(ctx, uid, model.TableFeedback, service.ColumnOrderRequest{Columns: []string{"id", "id"}})
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = env.Preferences.SetColumnOrder(ctx, uid, "orders", service.ColumnOrderRequest{Columns: []string{"id"}})
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Drag "date" (last) to the front.
	p, err := env.Preferences.MoveColumn(ctx, uid, model.TableFeedback, service.MoveColumnRequest{From: 5, To: 0})
	require.NoError(t, err)
	want := []string{"date", "id", "author", "email", "rating", "message"}
	if diff := cmp.Diff(want, p.Columns[model.TableFeedback]); diff != "" {
		t.Errorf("order after move (-want +got):\n%s", diff)
	}
	assert.True(t, model.FeedbackTable.IsPermutation(p.Columns[model.TableFeedback]))

	order, err := env.Preferences.ColumnOrder(ctx, uid, model.FeedbackTable)
	require.NoError(t, err)
	assert.Equal(t, want, order)

	_, err = env.Preferences.MoveColumn(ctx, uid, model.TableFeedback, service.MoveColumnRequest{From: 0, To: 9})
	assert.ErrorIs(t, err, common.ErrValidation)

	p, err = env.Preferences.ResetColumns(ctx, uid, model.TableFeedback)
	require.NoError(t, err)
	assert.Equal(t, model.FeedbackTable.DefaultOrder(), p.Columns[model.TableFeedback])
}
