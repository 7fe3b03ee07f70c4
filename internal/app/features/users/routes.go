// internal/app/features/users/routes.go
package users

import (
	"github.com/dalemusser/reliefhub/internal/app/system/auth"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /users.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)
	r.Use(auth.RequireRole(authz.RoleOrganizationAdmin))
	r.Put("/{id}/roles", h.HandleUpdateRoles)
	return r
}
