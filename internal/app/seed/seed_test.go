package seed_test

import (
	"context"
	"strings"
	"testing"

	"labdesk/internal/app/seed"
	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/testenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAndApply(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()

	f, err := seed.Load("testdata/seed.yaml")
	require.NoError(t, err)
	require.Len(t, f.Users, 2)
	require.Len(t, f.Feedback, 2)

	res, err := seed.Apply(ctx, env.Users, env.Feedback, f)
	require.NoError(t, err)
	assert.Equal(t, seed.Result{UsersCreated: 2, FeedbackCreated: 2}, res)

	admin, err := env.Users.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	page, err := env.Feedback.List(ctx, model.ListQuery{Search: "ivan@"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Ivan Petrov", page.Items[0].Author)

	// A second run finds everything in place.
	res, err = seed.Apply(ctx, env.Users, env.Feedback, f)
	require.NoError(t, err)
	assert.Equal(t, seed.Result{UsersSkipped: 2, FeedbackSkipped: 2}, res)

	page, err = env.Feedback.List(ctx, model.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := seed.Decode(strings.NewReader("users:\n  - name: X\n    mail: x@example.com\n"))
	assert.Error(t, err)

	f, err := seed.Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Users)
}

func TestApply_FeedbackForUnknownAuthor(t *testing.T) {
	env := testenv.New(t)
	_, err := seed.Apply(context.Background(), env.Users, env.Feedback, &seed.File{
		Feedback: []seed.Feedback{{Email: "ghost@example.com", Rating: 3, Message: "nobody wrote this"}},
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}
