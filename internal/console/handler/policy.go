package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/embedins-infra-prototype/internal/console/service"
	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

type PolicyHandler struct {
	service *service.PolicyService
}

func NewPolicyHandler(s *service.PolicyService) *PolicyHandler {
	return &PolicyHandler{service: s}
}

// List — GET /v1/policies?carrier_id=...&limit=...
func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	policies, err := h.service.List(r.Context(), r.URL.Query().Get("carrier_id"), limit)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(policies)
}

// Get — GET /v1/policies/{id}: полис вместе с записями журнала
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	policy, entries, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrPolicyNotFound) {
			http.Error(w, "policy not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"policy": policy,
		"ledger": entries,
	})
}

// LedgerTotals — GET /v1/ledger/totals?month=YYYY-MM
func (h *PolicyHandler) LedgerTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.service.LedgerTotals(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(totals)
}
