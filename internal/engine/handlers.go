package engine

/*
Файл handlers.go — HTTP-поверхность партнерского шлюза. Транспорт тонкий:
декодировать, вызвать ядро, смапить доменную ошибку в статус. Вся бизнес-
логика живет в core.go и ниже.
*/

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
	"github.com/xela07ax/embedins-infra-prototype/internal/portfolio"
	"github.com/xela07ax/embedins-infra-prototype/internal/refdata"
)

// PremiumHistory — источник подписанных премий для калибровки симуляции
type PremiumHistory interface {
	PolicyPremiums(ctx context.Context, month string) ([]float64, error)
}

type GatewayServer struct {
	router    *chi.Mux
	core      *Core
	simulator *portfolio.Simulator
	history   PremiumHistory
	logger    *zap.Logger
}

func NewGatewayServer(
	ref *refdata.Store,
	core *Core,
	simulator *portfolio.Simulator,
	history PremiumHistory,
	logger *zap.Logger,
) *GatewayServer {
	s := &GatewayServer{
		router:    chi.NewRouter(),
		core:      core,
		simulator: simulator,
		history:   history,
		logger:    logger.Named("gateway-api"),
	}

	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(TracingMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// Партнерский периметр: все /v1 под API-ключом
	r.Group(func(r chi.Router) {
		r.Use(PartnerAuthMiddleware(ref, s.logger))

		r.Post("/v1/quotes", s.handleCreateQuote)
		r.Get("/v1/quotes/{id}", s.handleGetQuote)
		r.Post("/v1/bindings", s.handleCreateBinding)
		r.Get("/v1/policies/{id}", s.handleGetPolicy)
		r.Post("/v1/portfolio/simulate", s.handleSimulate)
	})

	return s
}

func (s *GatewayServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *GatewayServer) handleCreateQuote(w http.ResponseWriter, r *http.Request) {
	partner, ok := partnerFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "malformed_json"}`, http.StatusBadRequest)
		return
	}

	quote, err := s.core.CreateQuote(r.Context(), partner, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Заблокированная котировка — валидный ответ 200 с decision=block
	writeJSON(w, http.StatusOK, quote)
}

func (s *GatewayServer) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	partner, ok := partnerFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	quote, err := s.core.GetQuote(r.Context(), partner, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (s *GatewayServer) handleCreateBinding(w http.ResponseWriter, r *http.Request) {
	partner, ok := partnerFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	var req BindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "malformed_json"}`, http.StatusBadRequest)
		return
	}
	if req.QuoteID == "" {
		http.Error(w, `{"error": "quote_id_required"}`, http.StatusBadRequest)
		return
	}

	policy, err := s.core.Bind(r.Context(), partner, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, policy)
}

func (s *GatewayServer) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	partner, ok := partnerFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "unauthorized"}`, http.StatusUnauthorized)
		return
	}

	policy, err := s.core.GetPolicy(r.Context(), partner, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

func (s *GatewayServer) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var in domain.SimulationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error": "malformed_json"}`, http.StatusBadRequest)
		return
	}

	// История подписанных премий калибрует распределение убытков;
	// пустой портфель переключает симуляцию на синтетику
	premiums, err := s.history.PolicyPremiums(r.Context(), in.AsOfMonth)
	if err != nil {
		s.logger.Warn("premium history unavailable, using synthetic scenarios", zap.Error(err))
		premiums = nil
	}

	result, err := s.simulator.Simulate(in, premiums)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// writeError — единая точка маппинга доменных ошибок в HTTP-статусы
func (s *GatewayServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	traceID := extractTraceID(r.Context())

	var status int
	var code string
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrSimulationParam):
		status, code = http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, domain.ErrQuoteNotFound), errors.Is(err, domain.ErrPolicyNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrComplianceBlocked):
		status, code = http.StatusForbidden, "compliance_blocked"
	case errors.Is(err, domain.ErrNoEligibleCarrier):
		status, code = http.StatusConflict, "no_eligible_carrier"
	case errors.Is(err, domain.ErrCapacityExhausted):
		status, code = http.StatusConflict, "capacity_exhausted"
	default:
		status, code = http.StatusInternalServerError, "internal_error"
		s.logger.Error("request failed", zap.String("trace_id", traceID), zap.Error(err))
	}

	writeJSON(w, status, map[string]string{
		"error":    code,
		"detail":   err.Error(),
		"trace_id": traceID,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
