// Package testenv wires repositories and services against a temporary SQLite
// database and an in-process Redis.
package testenv

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"labdesk/internal/app/service"
	"labdesk/internal/common/security"
	"labdesk/internal/domain/model"
	"labdesk/internal/domain/repository"
	"labdesk/internal/platform/config"
	"labdesk/internal/platform/database/dbtest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type Env struct {
	DB    *sql.DB
	Redis *miniredis.Miniredis
	RDB   *redis.Client

	UserRepo     repository.UserRepository
	FeedbackRepo repository.FeedbackRepository
	PrefRepo     repository.PreferenceRepository
	JobRepo      repository.ExportJobRepository

	Sessions    *service.SessionStore
	Auth        *service.AuthService
	Users       *service.UserService
	Feedback    *service.FeedbackService
	Counter     *service.CounterService
	Preferences *service.PreferenceService
	Exports     *service.ExportService
}

// New installs a test config and returns a fully wired environment.
// It mutates config.AppConfig, so tests using it must not run in parallel.
func New(t *testing.T) *Env {
	t.Helper()
	config.AppConfig = &config.Config{
		JWTKey:               []byte("test-secret"),
		JWTExp:               time.Hour,
		LogLevel:             "debug",
		DBDriver:             config.DriverSQLite,
		ExportQueueName:      "test_export_queue",
		ExportLockKey:        "test_export_lock",
		ExportLockTTLSeconds: 30,
	}
	security.InitJWT()

	db, dialect := dbtest.Open(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	e := &Env{
		DB:           db,
		Redis:        mr,
		RDB:          rdb,
		UserRepo:     repository.NewUserRepository(db, dialect),
		FeedbackRepo: repository.NewFeedbackRepository(db, dialect),
		PrefRepo:     repository.NewPreferenceRepository(db, dialect),
		JobRepo:      repository.NewExportJobRepository(db, dialect),
	}
	e.Sessions = service.NewSessionStore(rdb, config.AppConfig.JWTExp)
	e.Auth = service.NewAuthService(e.UserRepo, e.Sessions)
	e.Counter = service.NewCounterService(rdb)
	e.Users = service.NewUserService(e.UserRepo, e.FeedbackRepo, e.Sessions, e.Counter, db)
	e.Feedback = service.NewFeedbackService(e.FeedbackRepo)
	e.Preferences = service.NewPreferenceService(e.PrefRepo)
	e.Exports = service.NewExportService(e.JobRepo, e.Preferences, rdb, db)
	return e
}

// Register signs up a regular user with password "secret1".
func (e *Env) Register(t *testing.T, name, email string) *service.AuthResponse {
	t.Helper()
	resp, err := e.Auth.Register(context.Background(), service.RegisterRequest{
		Name: name, Email: email, Password: "secret1", ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	return resp
}

// Admin creates an administrator with password "admin123" and logs them in.
func (e *Env) Admin(t *testing.T) *service.AuthResponse {
	t.Helper()
	ctx := context.Background()
	_, err := e.Users.CreateUser(ctx, service.CreateUserRequest{
		Name: "Admin", Email: "admin@example.com", Password: "admin123", Role: model.RoleAdmin,
	})
	require.NoError(t, err)
	resp, err := e.Auth.Login(ctx, service.LoginRequest{Email: "admin@example.com", Password: "admin123"})
	require.NoError(t, err)
	return resp
}

// Snapshot returns the session view of user.
func Snapshot(user *model.User) *model.CurrentUser {
	cu := user.Snapshot()
	return &cu
}

// SessionID extracts the session id a token is bound to.
func SessionID(t *testing.T, token string) string {
	t.Helper()
	tok, err := security.TokenAuth.Decode(token)
	require.NoError(t, err)
	claims, err := tok.AsMap(context.Background())
	require.NoError(t, err)
	sid, err := security.GetSessionIDFromClaims(claims)
	require.NoError(t, err)
	return sid
}

// AfterCommand runs fn once, right after rdb first executes the named command
// (lower-case, e.g. "brpop"). It lets tests interleave work between two Redis
// calls of the code under test.
func AfterCommand(rdb *redis.Client, name string, fn func()) {
	rdb.AddHook(&afterCommandHook{name: name, fn: fn})
}

type afterCommandHook struct {
	name string
	fn   func()
	once sync.Once
}

func (h *afterCommandHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *afterCommandHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if cmd.Name() == h.name {
			h.once.Do(h.fn)
		}
		return err
	}
}

func (h *afterCommandHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}
