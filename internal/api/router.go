package api

import (
	"net/http"
	"time"

	"labdesk/internal/api/handler"
	"labdesk/internal/api/middleware"
	"labdesk/internal/app/service"
	"labdesk/internal/common/security"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"
)

type Services struct {
	Sessions    *service.SessionStore
	Auth        *service.AuthService
	Users       *service.UserService
	Feedback    *service.FeedbackService
	Counter     *service.CounterService
	Preferences *service.PreferenceService
	Exports     *service.ExportService
}

func NewRouter(s Services) http.Handler {
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies a bearer token when present and leaves the result in context.
	r.Use(jwtauth.Verifier(security.TokenAuth))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	authn := middleware.Authenticator(s.Sessions)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Route("/auth", handler.NewAuthHandler(s.Auth, authn).RegisterRoutes)
		v1.Route("/users", handler.NewUserHandler(s.Users, authn).RegisterRoutes)
		v1.Route("/feedback", handler.NewFeedbackHandler(s.Feedback, authn).RegisterRoutes)

		v1.Group(func(private chi.Router) {
			private.Use(authn)
			private.Route("/counter", handler.NewCounterHandler(s.Counter).RegisterRoutes)
			private.Route("/preferences", handler.NewPreferenceHandler(s.Preferences).RegisterRoutes)
		})

		v1.Route("/admin", func(admin chi.Router) {
			admin.Use(authn)
			admin.Use(middleware.AdminOnly)
			admin.Route("/users", handler.NewAdminHandler(s.Users).RegisterRoutes)
			admin.Route("/exports", handler.NewExportHandler(s.Exports).RegisterRoutes)
		})
	})

	return r
}
