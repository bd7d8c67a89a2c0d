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

// CreateGoal handles POST /api/v1/goals
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	var req types.NewGoal
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if req.Status == "" {
		req.Status = types.StatusDraft
	}

	if errs := validation.ValidateNewGoal(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Goal contains invalid fields", errs)
		return
	}

	goal, err := h.store.CreateGoal(r.Context(), req)
	if err != nil {
		slog.Error("create goal failed", "error", err, "period_id", req.PeriodID, "owner_id", req.OwnerID)
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, goal)
}

// GetGoal handles GET /api/v1/goals/{id}
func (h *Handler) GetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := h.store.GetGoal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// UpdateGoal handles PATCH /api/v1/goals/{id}
func (h *Handler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch types.GoalPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidateGoalPatch(patch); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Patch contains invalid fields", errs)
		return
	}

	goal, err := h.store.UpdateGoal(r.Context(), id, patch)
	if err != nil {
		slog.Error("update goal failed", "error", err, "goal_id", id)
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, goal)
}

// DeleteGoal handles DELETE /api/v1/goals/{id}
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.store.DeleteGoal(r.Context(), id); err != nil {
		MapStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListGoals handles GET /api/v1/periods/{id}/goals
func (h *Handler) ListGoals(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "id")
	filter := types.GoalFilter{
		OwnerID: r.URL.Query().Get("owner_id"),
		Status:  types.GoalStatus(r.URL.Query().Get("status")),
	}

	goals, err := h.store.ListGoals(r.Context(), periodID, filter)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.GoalList{Goals: goals})
}

// submitRequest is the body for POST /api/v1/periods/{id}/submissions.
type submitRequest struct {
	OwnerID string `json:"owner_id"`
}

// SubmitGoals handles POST /api/v1/periods/{id}/submissions
func (h *Handler) SubmitGoals(w http.ResponseWriter, r *http.Request) {
	periodID := chi.URLParam(r, "id")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}
	if req.OwnerID == "" {
		WriteProblem(w, r, http.StatusBadRequest, "owner_id is required")
		return
	}

	result, err := h.store.SubmitGoals(r.Context(), periodID, req.OwnerID)
	if err != nil {
		slog.Error("submit goals failed", "error", err, "period_id", periodID, "owner_id", req.OwnerID)
		MapStoreError(w, r, err)
		return
	}

	slog.Info("goal set submitted",
		"period_id", periodID,
		"owner_id", req.OwnerID,
		"count", result.Submitted,
	)
	writeJSON(w, http.StatusOK, result)
}
