package middleware

import (
	"context"
	"errors"
	"net/http"

	"labdesk/internal/common"
	"labdesk/internal/common/security"
	"labdesk/internal/domain/model"

	"github.com/go-chi/jwtauth/v5"
	"go.uber.org/zap"
)

type contextKey string

const (
	CurrentUserCtxKey contextKey = "currentUser"
	SessionIDCtxKey   contextKey = "sessionID"
)

// SessionLookup resolves a session id to its current-user snapshot.
type SessionLookup interface {
	Get(ctx context.Context, sid string) (*model.CurrentUser, error)
}

// Authenticator requires a verified token whose session is still live and
// whose user is not blocked.
func Authenticator(sessions SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				if errors.Is(err, jwtauth.ErrNoTokenFound) || token == nil {
					common.RespondWithError(w, http.StatusUnauthorized, "Authorization token required")
				} else {
					common.RespondWithError(w, http.StatusUnauthorized, "Invalid token: "+err.Error())
				}
				return
			}

			sid, err := security.GetSessionIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}
			userID, err := security.GetUserIDFromClaims(claims)
			if err != nil {
				common.RespondWithError(w, http.StatusUnauthorized, "Invalid token claims: "+err.Error())
				return
			}

			cu, err := sessions.Get(r.Context(), sid)
			if err != nil {
				if !errors.Is(err, common.ErrUnauthorized) {
					zap.L().Error("Session lookup failed", zap.String("sid", sid), zap.Error(err))
				}
				common.RespondWithErr(w, err)
				return
			}
			if cu.ID != userID {
				common.RespondWithError(w, http.StatusUnauthorized, "Session does not match token")
				return
			}
			if cu.Status == model.UserStatusBlocked {
				common.RespondWithError(w, http.StatusForbidden, "Account is blocked")
				return
			}

			ctx := context.WithValue(r.Context(), CurrentUserCtxKey, cu)
			ctx = context.WithValue(ctx, SessionIDCtxKey, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cu, ok := GetCurrentUserFromContext(r.Context())
		if !ok || !cu.IsAdmin() {
			common.RespondWithError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Helper to get the session's user from context
func GetCurrentUserFromContext(ctx context.Context) (*model.CurrentUser, bool) {
	cu, ok := ctx.Value(CurrentUserCtxKey).(*model.CurrentUser)
	return cu, ok
}

func GetSessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(SessionIDCtxKey).(string)
	return sid, ok
}
