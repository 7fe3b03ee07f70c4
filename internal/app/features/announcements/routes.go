// internal/app/features/announcements/routes.go
package announcements

import "github.com/go-chi/chi/v5"

// MountRoutes mounts all announcement routes on the given router.
// Reads are open to every role; writes require an admin of the organization.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{aid}", h.Show)
	r.Put("/{aid}", h.Update)
	r.Delete("/{aid}", h.Delete)
}
