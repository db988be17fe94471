package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go-auth-service/internal/model"
)

type identityResolver interface {
	ResolveIdentity(ctx context.Context, tokenString string) (model.User, error)
}

type contextKey string

const currentUserContextKey contextKey = "current_user"

type AuthMiddleware struct {
	resolver identityResolver
}

func NewAuthMiddleware(resolver identityResolver) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver}
}

// RequireAuth resolves the bearer token into the current user record and
// passes it down via the request context. Every rejection looks the same
// to the caller; the expired/invalid/vanished-user distinction is only
// logged.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := strings.TrimSpace(r.Header.Get("Authorization"))
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeUnauthorized(w)
			return
		}

		user, err := m.resolver.ResolveIdentity(r.Context(), strings.TrimSpace(header[7:]))
		if err != nil {
			switch {
			case errors.Is(err, model.ErrTokenExpired):
				slog.Info("token rejected", "reason", "expired", "path", r.URL.Path)
			case errors.Is(err, model.ErrTokenInvalid):
				slog.Info("token rejected", "reason", "invalid", "path", r.URL.Path)
			case errors.Is(err, model.ErrUserNotFound):
				slog.Info("token rejected", "reason", "user no longer exists", "path", r.URL.Path)
			default:
				slog.Error("identity resolution failed", "error", err.Error())
			}
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), currentUserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func UserFromContext(ctx context.Context) (model.User, bool) {
	user, ok := ctx.Value(currentUserContextKey).(model.User)
	return user, ok
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = jsonEncode(w, model.APIResponse{
		Success: false,
		Error: &model.APIError{
			Code:    "UNAUTHORIZED",
			Message: "Invalid or expired token",
		},
	})
}
