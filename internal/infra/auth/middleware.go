package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

// TokenValidator разрешает токен в клеймы; реализуется BaseValidator
type TokenValidator interface {
	VerifyToken(tokenStr string) (*domain.CustomClaims, error)
}

type ctxKey string

const (
	userIDKey ctxKey = "auth.user_id"
	scopesKey ctxKey = "auth.scopes"
)

// NewMiddleware закрывает группу маршрутов консоли: без валидного токена —
// 401 без деталей (причина уходит в лог, не клиенту)
func NewMiddleware(v TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := v.VerifyToken(header)
			if err != nil {
				logger.Warn("auth failure",
					zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			ctx = context.WithValue(ctx, scopesKey, claims.Scopes)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext — ID оператора, положенный миддлварью
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// ScopesFromContext — скоупы оператора
func ScopesFromContext(ctx context.Context) (map[string]bool, bool) {
	scopes, ok := ctx.Value(scopesKey).(map[string]bool)
	return scopes, ok
}
