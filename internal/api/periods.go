package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/goalpost-hq/goalpost/internal/types"
	"github.com/goalpost-hq/goalpost/internal/validation"
)

// CreatePeriod handles POST /api/v1/periods
func (h *Handler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req types.NewPeriod
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidateNewPeriod(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Period contains invalid fields", errs)
		return
	}

	period, err := h.store.CreatePeriod(r.Context(), req)
	if err != nil {
		slog.Error("create period failed", "error", err, "name", req.Name)
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, period)
}

// GetPeriod handles GET /api/v1/periods/{id}
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	period, err := h.store.GetPeriod(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, period)
}

// ListPeriods handles GET /api/v1/periods
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.store.ListPeriods(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.PeriodList{Periods: periods})
}

// ClosePeriod handles POST /api/v1/periods/{id}/close
func (h *Handler) ClosePeriod(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.ClosePeriod(r.Context(), id); err != nil {
		MapStoreError(w, r, err)
		return
	}

	slog.Info("period closed", "period_id", id)
	w.WriteHeader(http.StatusNoContent)
}
