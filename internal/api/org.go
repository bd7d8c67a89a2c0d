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

// CreateUser handles POST /api/v1/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req types.NewUser
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidateNewUser(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "User contains invalid fields", errs)
		return
	}

	user, err := h.store.CreateUser(r.Context(), req)
	if err != nil {
		slog.Error("create user failed", "error", err, "email", req.Email)
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /api/v1/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ListUsers handles GET /api/v1/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.UserList{Users: users})
}

// CreateDepartment handles POST /api/v1/departments
func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req types.NewDepartment
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %s", err.Error()))
		return
	}

	if errs := validation.ValidateNewDepartment(req); len(errs) > 0 {
		WriteProblemWithErrors(w, r, "Department contains invalid fields", errs)
		return
	}

	dept, err := h.store.CreateDepartment(r.Context(), req)
	if err != nil {
		slog.Error("create department failed", "error", err, "name", req.Name)
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dept)
}

// ListDepartments handles GET /api/v1/departments
func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.store.ListDepartments(r.Context())
	if err != nil {
		MapStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types.DepartmentList{Departments: departments})
}

// Dashboard handles GET /api/v1/dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		WriteProblem(w, r, http.StatusBadRequest, "user_id is required")
		return
	}
	periodID := r.URL.Query().Get("period_id")

	summary, err := h.store.GetDashboard(r.Context(), userID, periodID)
	if err != nil {
		MapStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
