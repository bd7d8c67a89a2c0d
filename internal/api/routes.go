package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.Get("/health", h.Health)

		// Protected routes (auth required)
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(h.apiKey))

			r.Post("/goals", h.CreateGoal)
			r.Get("/goals/{id}", h.GetGoal)
			r.Patch("/goals/{id}", h.UpdateGoal)
			r.Delete("/goals/{id}", h.DeleteGoal)

			r.Post("/periods", h.CreatePeriod)
			r.Get("/periods", h.ListPeriods)
			r.Get("/periods/{id}", h.GetPeriod)
			r.Post("/periods/{id}/close", h.ClosePeriod)
			r.Get("/periods/{id}/goals", h.ListGoals)
			r.Post("/periods/{id}/submissions", h.SubmitGoals)
			r.Get("/periods/{id}/reviews", h.ListReviews)

			r.Post("/reviews", h.CreateReview)

			r.Post("/users", h.CreateUser)
			r.Get("/users", h.ListUsers)
			r.Get("/users/{id}", h.GetUser)

			r.Post("/departments", h.CreateDepartment)
			r.Get("/departments", h.ListDepartments)

			r.Get("/dashboard", h.Dashboard)
		})
	})

	return r
}
