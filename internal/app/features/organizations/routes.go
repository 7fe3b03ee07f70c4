// internal/app/features/organizations/routes.go
package organizations

import (
	"github.com/dalemusser/reliefhub/internal/app/features/announcements"
	"github.com/dalemusser/reliefhub/internal/app/system/auth"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all Organization routes under the base path
// (typically "/organizations" from bootstrap). Announcements live under
// /{id}/announcements.
func Routes(h *Handler, ann *announcements.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/{id}", h.ServeGet)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(authz.RoleOrganizationAdmin))
		pr.Post("/", h.HandleCreate)
		pr.Post("/{id}/needs", h.HandleCreateNeed)
	})

	r.Route("/{id}/announcements", ann.MountRoutes)
	return r
}
