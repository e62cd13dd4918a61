package engine

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
	"github.com/xela07ax/embedins-infra-prototype/internal/refdata"
)

// Тип для ключа в контексте (избегаем коллизий)
type ctxKey string

const (
	traceIDKey ctxKey = "trace_id"
	partnerKey ctxKey = "partner"
)

// TracingMiddleware инициализирует Trace-ID для каждого запроса
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Пытаемся достать ID из заголовка (если пришел от партнерского прокси)
		traceID := r.Header.Get("X-Trace-ID")

		// 2. Если его нет — генерируем новый
		if traceID == "" {
			traceID = uuid.New().String()
		}

		// 3. Кладем в контекст
		ctx := context.WithValue(r.Context(), traceIDKey, traceID)

		// 4. Добавляем в ответ, чтобы клиент тоже знал ID своего запроса
		w.Header().Set("X-Trace-ID", traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractTraceID помогает безопасно достать ID в любом месте кода
func extractTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return "00000000-0000-0000-0000-000000000000" // Fallback
}

// PartnerAuthMiddleware резолвит партнера по API-ключу из заголовка.
// Ключи живут в справочнике: партнерский онбординг — процедура деплоя,
// а не runtime-операция.
func PartnerAuthMiddleware(ref *refdata.Store, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				http.Error(w, `{"error": "missing_api_key"}`, http.StatusUnauthorized)
				return
			}

			partner, ok := ref.PartnerByAPIKey(apiKey)
			if !ok {
				logger.Warn("unknown partner api key",
					zap.String("trace_id", extractTraceID(r.Context())))
				http.Error(w, `{"error": "invalid_api_key"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), partnerKey, partner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// partnerFromContext — партнер, положенный PartnerAuthMiddleware
func partnerFromContext(ctx context.Context) (*domain.Partner, bool) {
	p, ok := ctx.Value(partnerKey).(*domain.Partner)
	return p, ok
}
