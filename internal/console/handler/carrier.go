package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xela07ax/embedins-infra-prototype/internal/console/service"
	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

type CarrierHandler struct {
	service *service.CarrierService
}

func NewCarrierHandler(s *service.CarrierService) *CarrierHandler {
	return &CarrierHandler{service: s}
}

// List — GET /v1/carriers
func (h *CarrierHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// Capacity — GET /v1/carriers/{id}/capacity?month=YYYY-MM
func (h *CarrierHandler) Capacity(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}

	view, err := h.service.Capacity(r.Context(), chi.URLParam(r, "id"), month)
	if err != nil {
		if errors.Is(err, domain.ErrCarrierNotFound) {
			http.Error(w, "carrier not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view)
}

// Pause — POST /v1/carriers/{id}/pause
func (h *CarrierHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, h.service.Pause)
}

// Unpause — POST /v1/carriers/{id}/unpause
func (h *CarrierHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, h.service.Unpause)
}

func (h *CarrierHandler) togglePause(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id string) error) {
	id := chi.URLParam(r, "id")
	if err := action(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrCarrierNotFound) {
			http.Error(w, "carrier not found", http.StatusNotFound)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
