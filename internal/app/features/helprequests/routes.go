// internal/app/features/helprequests/routes.go
package helprequests

import (
	"github.com/dalemusser/reliefhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /help-requests. Role checks happen in the coordinator.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Post("/", h.HandleCreate)
	r.Get("/open", h.ServeOpen)
	r.Get("/mine", h.ServeMine)
	r.Get("/{id}", h.ServeGet)
	r.Post("/{id}/claims", h.HandleClaim)
	r.Post("/{id}/resolve", h.HandleResolve)
	return r
}

// AssignmentRoutes is mounted at /assignments.
func AssignmentRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/mine", h.ServeMyAssignments)
	r.Post("/{id}/complete", h.HandleComplete)
	return r
}
