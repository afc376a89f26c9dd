package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"labdesk/internal/app/service"
	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/testenv"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProfile_CascadesToFeedbackAndSessions(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	ann := env.Register(t, "Ann", "ann@example.com")
	bob := env.Register(t, "Bob", "bob@example.com")

	_, err := env.Feedback.Create(ctx, testenv.Snapshot(ann.User), service.FeedbackRequest{Rating: 4, Message: "first feedback from ann"})
	require.NoError(t, err)
	_, err = env.Feedback.Create(ctx, testenv.Snapshot(bob.User), service.FeedbackRequest{Rating: 2, Message: "feedback written by bob"})
	require.NoError(t, err)

	updated, err := env.Users.UpdateProfile(ctx, ann.User.ID, service.UpdateProfileRequest{
		Name: "Anna Smith", Email: "anna@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, ann.User.ID, updated.ID)
	assert.True(t, ann.User.CreatedAt.Equal(updated.CreatedAt))
	assert.Equal(t, model.RoleUser, updated.Role)
	assert.Equal(t, "anna-smith", updated.Handle)

	page, err := env.Feedback.List(ctx, model.ListQuery{SortBy: "author"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Anna Smith", page.Items[0].Author)
	assert.Equal(t, "anna@example.com", page.Items[0].Email)
	assert.Equal(t, "Bob", page.Items[1].Author)

	cu, err := env.Sessions.Get(ctx, testenv.SessionID(t, ann.Token))
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", cu.Email)
	assert.Equal(t, "Anna Smith", cu.Name)
}

func TestUpdateProfile_LogoutDuringRefreshStaysLoggedOut(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	ann := env.Register(t, "Ann", "ann@example.com")
	sid := testenv.SessionID(t, ann.Token)

	// A second client logs the session out while the profile update is
	// between listing the user's sessions and rewriting them.
	other := redis.NewClient(&redis.Options{Addr: env.Redis.Addr()})
	t.Cleanup(func() { other.Close() })
	testenv.AfterCommand(env.RDB, "smembers", func() {
		require.NoError(t, service.NewSessionStore(other, time.Hour).Delete(ctx, sid))
	})

	_, err := env.Users.UpdateProfile(ctx, ann.User.ID, service.UpdateProfileRequest{Name: "Anna", Email: "ann@example.com"})
	require.NoError(t, err)

	_, err = env.Sessions.Get(ctx, sid)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	assert.False(t, env.Redis.Exists("session:"+sid))
	members, err := env.RDB.SMembers(ctx, "user_sessions:"+ann.User.ID).Result()
	require.NoError(t, err)
	assert.NotContains(t, members, sid)
}

func TestUpdateProfile_KeepsSessionTTL(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	ann := env.Register(t, "Ann", "ann@example.com")
	sid := testenv.SessionID(t, ann.Token)

	env.Redis.FastForward(10 * time.Minute)
	before := env.Redis.TTL("session:" + sid)
	require.Positive(t, before)

	_, err := env.Users.UpdateProfile(ctx, ann.User.ID, service.UpdateProfileRequest{Name: "Anna", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.Equal(t, before, env.Redis.TTL("session:"+sid))
}

func TestUpdateProfile_EmailTakenByOther(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	ann := env.Register(t, "Ann", "ann@example.com")
	env.Register(t, "Bob", "bob@example.com")

	_, err := env.Users.UpdateProfile(ctx, ann.User.ID, service.UpdateProfileRequest{Name: "Ann", Email: "BOB@example.com"})
	assert.ErrorIs(t, err, common.ErrConflict)

	// Keeping one's own email is not a conflict.
	_, err = env.Users.UpdateProfile(ctx, ann.User.ID, service.UpdateProfileRequest{Name: "Ann B", Email: "ann@example.com"})
	assert.NoError(t, err)
}

func TestUpdateProfile_PasswordChange(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	ann := env.Register(t, "Ann", "ann@example.com")

	base := service.UpdateProfileRequest{Name: "Ann", Email: "ann@example.com", NewPassword: "better-secret", ConfirmPassword: "better-secret"}

	_, err := env.Users.UpdateProfile(ctx, ann.User.ID, base)
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "current_password")

	wrong := base
	wrong.CurrentPassword = "not-it"
	_, err = env.Users.UpdateProfile(ctx, ann.User.ID, wrong)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is incorrect", verr.Fields["current_password"])

	mismatch := base
	mismatch.CurrentPassword = "secret1"
	mismatch.ConfirmPassword = "different"
	_, err = env.Users.UpdateProfile(ctx, ann.User.ID, mismatch)
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "confirm_password")

	ok := base
	ok.CurrentPassword = "secret1"
	_, err = env.Users.UpdateProfile(ctx, ann.User.ID, ok)
	require.NoError(t, err)

	_, err = env.Auth.Login(ctx, service.LoginRequest{Email: "ann@example.com", Password: "better-secret"})
	assert.NoError(t, err)
	_, err = env.Auth.Login(ctx, service.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAdmin_CannotBlockOrDeleteSelf(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	admin := env.Admin(t)
	actor := testenv.Snapshot(admin.User)

	_, err := env.Users.ToggleBlock(ctx, actor, admin.User.ID)
	assert.ErrorIs(t, err, common.ErrForbidden)
	assert.ErrorIs(t, env.Users.DeleteUser(ctx, actor, admin.User.ID), common.ErrForbidden)
}

func TestAdmin_ToggleBlockMarksSessions(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	admin := env.Admin(t)
	ann := env.Register(t, "Ann", "ann@example.com")
	sid := testenv.SessionID(t, ann.Token)

	blocked, err := env.Users.ToggleBlock(ctx, testenv.Snapshot(admin.User), ann.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusBlocked, blocked.Status)

	cu, err := env.Sessions.Get(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusBlocked, cu.Status)

	unblocked, err := env.Users.ToggleBlock(ctx, testenv.Snapshot(admin.User), ann.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserStatusActive, unblocked.Status)
}

func TestAdmin_DeleteUserKeepsFeedbackAndRevokesSessions(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	admin := env.Admin(t)
	ann := env.Register(t, "Ann", "ann@example.com")

	_, err := env.Feedback.Create(ctx, testenv.Snapshot(ann.User), service.FeedbackRequest{Rating: 5, Message: "will outlive my account"})
	require.NoError(t, err)

	_, err = env.Counter.Increment(ctx, ann.User.ID)
	require.NoError(t, err)

	require.NoError(t, env.Users.DeleteUser(ctx, testenv.Snapshot(admin.User), ann.User.ID))
	assert.False(t, env.Redis.Exists("counter:"+ann.User.ID))

	_, err = env.Users.GetProfile(ctx, ann.User.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = env.Sessions.Get(ctx, testenv.SessionID(t, ann.Token))
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	page, err := env.Feedback.List(ctx, model.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	assert.ErrorIs(t, env.Users.DeleteUser(ctx, testenv.Snapshot(admin.User), ann.User.ID), common.ErrNotFound)
}

func TestAdmin_CreateListAndChangePassword(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	env.Admin(t)

	_, err := env.Users.CreateUser(ctx, service.CreateUserRequest{Name: "Zed", Email: "zed@example.com", Password: "zed-pass", Role: "root"})
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "role")

	zed, err := env.Users.CreateUser(ctx, service.CreateUserRequest{Name: "Zed", Email: "zed@example.com", Password: "zed-pass"})
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, zed.Role)

	page, err := env.Users.ListUsers(ctx, model.ListQuery{SortBy: "email", Order: model.SortDesc, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "zed@example.com", page.Items[0].Email)

	assert.ErrorIs(t, env.Users.ChangePassword(ctx, zed.ID, service.ChangePasswordRequest{Password: "123"}), common.ErrValidation)
	require.NoError(t, env.Users.ChangePassword(ctx, zed.ID, service.ChangePasswordRequest{Password: "new-pass"}))
	_, err = env.Auth.Login(ctx, service.LoginRequest{Email: "zed@example.com", Password: "new-pass"})
	assert.NoError(t, err)

	byHandle, err := env.Users.GetByHandle(ctx, "zed")
	require.NoError(t, err)
	assert.Equal(t, zed.ID, byHandle.ID)
}

func TestAdmin_ChangePasswordEndsSessions(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	ann := env.Register(t, "Ann", "ann@example.com")
	sid := testenv.SessionID(t, ann.Token)

	require.NoError(t, env.Users.ChangePassword(ctx, ann.User.ID, service.ChangePasswordRequest{Password: "reset-pass"}))

	_, err := env.Sessions.Get(ctx, sid)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	_, err = env.Auth.Login(ctx, service.LoginRequest{Email: "ann@example.com", Password: "reset-pass"})
	assert.NoError(t, err)
}
