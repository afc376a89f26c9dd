package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/domain/repository"
	"labdesk/internal/platform/database/dbtest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(name, email string, created time.Time) *model.User {
	return &model.User{
		ID:             uuid.NewString(),
		Name:           name,
		Handle:         uuid.NewString()[:8],
		Email:          email,
		HashedPassword: "hash",
		Role:           model.RoleUser,
		Status:         model.UserStatusActive,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func newFeedback(author, email string, rating int, ts int64) *model.Feedback {
	t := time.UnixMilli(ts).UTC()
	return &model.Feedback{
		ID:        uuid.NewString(),
		Author:    author,
		Email:     email,
		Rating:    rating,
		Message:   "a message long enough",
		Date:      model.DisplayDate(t),
		Timestamp: ts,
		UpdatedAt: t,
	}
}

func TestUserRepository_CreateAndFind(t *testing.T) {
	db, dialect := dbtest.Open(t)
	repo := repository.NewUserRepository(db, dialect)
	ctx := context.Background()

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	u := newUser("Ann", "ann@example.com", created)
	require.NoError(t, repo.Create(ctx, nil, u))

	got, err := repo.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.CreatedAt.Equal(created))

	got, err = repo.FindByHandle(ctx, u.Handle)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = repo.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUserRepository_DuplicateEmailConflicts(t *testing.T) {
	db, dialect := dbtest.Open(t)
	repo := repository.NewUserRepository(db, dialect)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, nil, newUser("Ann", "ann@example.com", time.Now().UTC())))
	err := repo.Create(ctx, nil, newUser("Other Ann", "ann@example.com", time.Now().UTC()))
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestUserRepository_ListSearchSortPage(t *testing.T) {
	db, dialect := dbtest.Open(t)
	repo := repository.NewUserRepository(db, dialect)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"Carol", "alice", "Bob", "Alina"} {
		require.NoError(t, repo.Create(ctx, nil, newUser(name, name+"@example.com", base.Add(time.Duration(i)*time.Hour))))
	}

	users, total, err := repo.List(ctx, model.ListQuery{Search: "ALI", SortBy: "name"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	names := []string{}
	for _, u := range users {
		names = append(names, u.Name)
	}
	if diff := cmp.Diff([]string{"Alina", "alice"}, names); diff != "" {
		t.Errorf("search+sort mismatch (-want +got):\n%s", diff)
	}

	users, total, err = repo.List(ctx, model.ListQuery{PageSize: 3, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, users, 1)
	assert.Equal(t, "Alina", users[0].Name, "default sort is created_at ascending")

	_, _, err = repo.List(ctx, model.ListQuery{SortBy: "id"})
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "sort_by")
}

func TestFeedbackRepository_DefaultOrderIsNewestFirst(t *testing.T) {
	db, dialect := dbtest.Open(t)
	repo := repository.NewFeedbackRepository(db, dialect)
	ctx := context.Background()

	older := newFeedback("Ann", "ann@example.com", 4, 1_700_000_000_000)
	newer := newFeedback("Bob", "bob@example.com", 2, 1_700_000_500_000)
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, newer))

	items, total, err := repo.List(ctx, model.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, newer.ID, items[0].ID)

	items, _, err = repo.List(ctx, model.ListQuery{SortBy: "rating", Order: model.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, older.ID, items[0].ID)

	_, _, err = repo.List(ctx, model.ListQuery{SortBy: "message"})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestFeedbackRepository_UpdateKeepsDate(t *testing.T) {
	db, dialect := dbtest.Open(t)
	repo := repository.NewFeedbackRepository(db, dialect)
	ctx := context.Background()

	f := newFeedback("Ann", "ann@example.com", 3, 1_700_000_000_000)
	require.NoError(t, repo.Create(ctx, f))

	edited := *f
	edited.Rating = 5
	edited.Message = "changed my mind entirely"
	edited.Date = "01.01.1999"
	edited.Timestamp = 1
	require.NoError(t, repo.Update(ctx, &edited))

	got, err := repo.FindByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, f.Date, got.Date)
	assert.Equal(t, f.Timestamp, got.Timestamp)

	missing := newFeedback("X", "x@example.com", 1, 1)
	assert.ErrorIs(t, repo.Update(ctx, missing), common.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, missing.ID), common.ErrNotFound)
}

func TestFeedbackRepository_RewriteAuthor(t *testing.T) {
	db, dialect := dbtest.Open(t)
	repo := repository.NewFeedbackRepository(db, dialect)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newFeedback("Ann", "ann@example.com", 3, 1)))
	require.NoError(t, repo.Create(ctx, newFeedback("Ann", "ann@example.com", 4, 2)))
	require.NoError(t, repo.Create(ctx, newFeedback("Bob", "bob@example.com", 5, 3)))

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	n, err := repo.RewriteAuthor(ctx, tx, "ann@example.com", "Anna", "anna@example.com")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.EqualValues(t, 2, n)

	items, total, err := repo.List(ctx, model.ListQuery{Search: "anna@"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, f := range items {
		assert.Equal(t, "Anna", f.Author)
	}
}

func TestPreferenceRepository_RoundTrip(t *testing.T) {
	db, dialect := dbtest.Open(t)
	users := repository.NewUserRepository(db, dialect)
	prefs := repository.NewPreferenceRepository(db, dialect)
	ctx := context.Background()

	u := newUser("Ann", "ann@example.com", time.Now().UTC())
	require.NoError(t, users.Create(ctx, nil, u))

	_, err := prefs.Get(ctx, u.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	p := model.DefaultPreferences(u.ID)
	p.Theme = model.ThemeDark
	p.Columns[model.TableFeedback] = []string{"date", "id", "author", "email", "rating", "message"}
	require.NoError(t, prefs.Save(ctx, p))

	p.Theme = model.ThemeLight
	require.NoError(t, prefs.Save(ctx, p))

	got, err := prefs.Get(ctx, u.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("preferences mismatch (-want +got):\n%s", diff)
	}
}

func TestPreferenceRepository_MalformedColumnsFallBack(t *testing.T) {
	db, dialect := dbtest.Open(t)
	users := repository.NewUserRepository(db, dialect)
	prefs := repository.NewPreferenceRepository(db, dialect)
	ctx := context.Background()

	u := newUser("Ann", "ann@example.com", time.Now().UTC())
	require.NoError(t, users.Create(ctx, nil, u))
	_, err := db.ExecContext(ctx,
		`INSERT INTO user_preferences (user_id, theme, columns, updated_at) VALUES (?, 'dark', '{not json', ?)`,
		u.ID, time.Now().UTC())
	require.NoError(t, err)

	got, err := prefs.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ThemeDark, got.Theme)
	assert.Empty(t, got.Columns)
}

func TestExportJobRepository_Lifecycle(t *testing.T) {
	db, dialect := dbtest.Open(t)
	repo := repository.NewExportJobRepository(db, dialect)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	job := &model.ExportJob{
		ID:          uuid.NewString(),
		RequestedBy: "admin",
		Resource:    model.TableUsers,
		Params:      model.ExportParams{Search: "ann", Columns: model.UsersTable.DefaultOrder()},
		Status:      model.JobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, repo.CreateJob(ctx, nil, job))
	require.NoError(t, repo.IncrementJobAttempts(ctx, job.ID))
	require.NoError(t, repo.UpdateJobStatus(ctx, job.ID, model.JobStatusProcessing, nil))
	require.NoError(t, repo.CompleteJob(ctx, job.ID, "ID\n1\n"))

	got, err := repo.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, got.Status)
	assert.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.Result)
	assert.Equal(t, "ID\n1\n", *got.Result)
	assert.Nil(t, got.LastError)
	assert.Equal(t, job.Params, got.Params)

	assert.ErrorIs(t, repo.UpdateJobStatus(ctx, "missing", model.JobStatusFailed, nil), common.ErrNotFound)
}
