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

// CreateReview handles POST /api/v1/reviews
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var req types.NewReview
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidateNewReview(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Review contains invalid fields", errs)
		return
	}

	review, err := h.store.CreateReview(r.Context(), req)
	if err != nil {
		slog.Error("create review failed",
			"error", err,
			"period_id", req.PeriodID,
			"employee_id", req.EmployeeID,
		)
		MapStoreError(w, r, err)
		return
	}

	slog.Info("review recorded",
		"period_id", review.PeriodID,
		"employee_id", review.EmployeeID,
		"rating", review.Rating,
	)
	writeJSON(w, http.StatusCreated, review)
}

// ListReviews handles GET /api/v1/periods/{id}/reviews
func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.ListReviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ReviewList{Reviews: reviews})
}
