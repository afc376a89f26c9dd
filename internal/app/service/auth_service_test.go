package service_test

import (
	"context"
	"errors"
	"testing"

	"labdesk/internal/app/service"
	"labdesk/internal/common"
	"labdesk/internal/domain/model"
	"labdesk/internal/testenv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_LogsInAsActiveUser(t *testing.T) {
	env := testenv.New(t)
	resp := env.Register(t, "  Ann Lee ", "Ann@Example.COM")

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Ann Lee", resp.User.Name)
	assert.Equal(t, "ann@example.com", resp.User.Email)
	assert.Equal(t, "ann-lee", resp.User.Handle)
	assert.Equal(t, model.RoleUser, resp.User.Role)
	assert.Equal(t, model.UserStatusActive, resp.User.Status)
	assert.NotEqual(t, "secret1", resp.User.HashedPassword)
}

func TestRegister_DuplicateEmailRejected(t *testing.T) {
	env := testenv.New(t)
	env.Register(t, "Ann", "ann@example.com")

	_, err := env.Auth.Register(context.Background(), service.RegisterRequest{
		Name: "Another Ann", Email: " ANN@example.com", Password: "secret1", ConfirmPassword: "secret1",
	})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestRegister_ValidationFields(t *testing.T) {
	env := testenv.New(t)
	_, err := env.Auth.Register(context.Background(), service.RegisterRequest{
		Name: "A", Email: "not-an-email", Password: "123", ConfirmPassword: "1234",
	})
	var verr *common.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "must be at least 2 characters", verr.Fields["name"])
	assert.Equal(t, "must be a valid email address", verr.Fields["email"])
	assert.Equal(t, "must be at least 6 characters", verr.Fields["password"])
	assert.Equal(t, "does not match", verr.Fields["confirm_password"])
}

func TestRegister_SameNameGetsDistinctHandle(t *testing.T) {
	env := testenv.New(t)
	first := env.Register(t, "Ann", "ann1@example.com")
	second := env.Register(t, "Ann", "ann2@example.com")
	assert.Equal(t, "ann", first.User.Handle)
	assert.NotEqual(t, first.User.Handle, second.User.Handle)
	assert.Contains(t, second.User.Handle, "ann-")
}

func TestLogin(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	env.Register(t, "Ann", "ann@example.com")

	resp, err := env.Auth.Login(ctx, service.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = env.Auth.Login(ctx, service.LoginRequest{Email: "ann@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = env.Auth.Login(ctx, service.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestLogin_BlockedUserForbidden(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	admin := env.Admin(t)
	ann := env.Register(t, "Ann", "ann@example.com")

	_, err := env.Users.ToggleBlock(ctx, testenv.Snapshot(admin.User), ann.User.ID)
	require.NoError(t, err)

	_, err = env.Auth.Login(ctx, service.LoginRequest{Email: "ann@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, common.ErrForbidden)
}

func TestLogoutEndsSession(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	resp := env.Register(t, "Ann", "ann@example.com")
	sid := testenv.SessionID(t, resp.Token)

	cu, err := env.Auth.Current(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", cu.Email)

	require.NoError(t, env.Auth.Logout(ctx, sid))
	_, err = env.Auth.Current(ctx, sid)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
	require.NoError(t, env.Auth.Logout(ctx, sid), "logging out twice is harmless")
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()

	require.NoError(t, env.Auth.EnsureAdmin(ctx, "Root", "root@example.com", "admin123"))
	require.NoError(t, env.Auth.EnsureAdmin(ctx, "Root", "root@example.com", "admin123"))
	require.NoError(t, env.Auth.EnsureAdmin(ctx, "Nobody", "", ""))

	u, err := env.UserRepo.FindByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.True(t, u.IsAdmin())

	_, total, err := env.UserRepo.List(ctx, model.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	assert.ErrorIs(t, env.Auth.EnsureAdmin(ctx, "Weak", "weak@example.com", "123"), common.ErrValidation)
}
