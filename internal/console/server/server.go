package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/console/handler"
	"github.com/xela07ax/embedins-infra-prototype/internal/infra"
	"github.com/xela07ax/embedins-infra-prototype/internal/infra/auth"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Интерфейс для проверки токенов (RS256)
	// Реализуется через embedding BaseValidator в AuthService
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	authHandler    *handler.AuthHandler    // /auth/token
	carrierHandler *handler.CarrierHandler // /v1/carriers
	policyHandler  *handler.PolicyHandler  // /v1/policies, /v1/ledger
}

// NewConsoleServer инициализирует сервер консоли андеррайтинга
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	carrierH *handler.CarrierHandler,
	policyH *handler.PolicyHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:         chi.NewRouter(),
		logger:         logger.Named("console-api"),
		cfg:            cfg,
		authValidator:  validator,
		authHandler:    authH,
		carrierHandler: carrierH,
		policyHandler:  policyH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		// Подключаем универсальный Middleware только для этой группы
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Управление носителями (Appetite, Capacity, Pause)
		r.Route("/v1/carriers", func(r chi.Router) {
			r.Get("/", s.carrierHandler.List) // Список носителей со статусом
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/capacity", s.carrierHandler.Capacity)  // Месячное окно емкости
				r.Post("/pause", s.carrierHandler.Pause)       // Вывод из ротации
				r.Post("/unpause", s.carrierHandler.Unpause)   // Возврат в ротацию
			})
		})

		// Портфель и журнал премий
		r.Route("/v1/policies", func(r chi.Router) {
			r.Get("/", s.policyHandler.List) // Выпущенные полисы
			r.Get("/{id}", s.policyHandler.Get)
		})
		r.Get("/v1/ledger/totals", s.policyHandler.LedgerTotals) // Сверка премий
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
