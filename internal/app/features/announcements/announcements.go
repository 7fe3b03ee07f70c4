// internal/app/features/announcements/announcements.go
package announcements

import (
	"context"
	"net/http"

	announcementstore "github.com/dalemusser/reliefhub/internal/app/store/announcements"
	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/respond"
	"github.com/dalemusser/reliefhub/internal/app/system/timeouts"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var errNotOrgAdmin = apperr.Forbiddenf("not an admin of this organization")

// target resolves the organization from the URL and checks the actor may act
// on it. Writers must administer the organization.
func (h *Handler) target(r *http.Request, write bool) (*authz.Actor, primitive.ObjectID, error) {
	actor := authz.CurrentActor(r)
	required := authz.AllRoles
	if write {
		required = []authz.Role{authz.RoleOrganizationAdmin}
	}
	if err := authz.Authorize(actor, required...); err != nil {
		return nil, primitive.NilObjectID, err
	}
	orgID, err := respond.PathID(r, "id")
	if err != nil {
		return nil, primitive.NilObjectID, err
	}
	if write && !actor.AdministersOrg(orgID) {
		return nil, primitive.NilObjectID, errNotOrgAdmin
	}
	return actor, orgID, nil
}

// List returns the organization's announcements. Only admins of the
// organization see drafts.
// GET /organizations/{id}/announcements
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, orgID, err := h.target(r, false)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list announcements")
	defer cancel()

	if _, err := h.Orgs.GetByID(ctx, orgID); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	list, err := h.Store.ListByOrg(ctx, orgID, !actor.AdministersOrg(orgID))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, list)
}

// Show returns one announcement; drafts are hidden from non-admins.
// GET /organizations/{id}/announcements/{aid}
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	actor, orgID, err := h.target(r, false)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	aid, err := respond.PathID(r, "aid")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get announcement")
	defer cancel()

	a, err := h.Store.GetByID(ctx, orgID, aid)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if a.Status != models.AnnouncementPublished && !actor.AdministersOrg(orgID) {
		respond.Error(w, r, h.Log, apperr.NotFoundf("announcement not found"))
		return
	}
	respond.JSON(w, http.StatusOK, a)
}

// Create posts a new announcement.
// POST /organizations/{id}/announcements
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, orgID, err := h.target(r, true)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var in announcementstore.Input
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create announcement")
	defer cancel()

	if _, err := h.Orgs.GetByID(ctx, orgID); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	a, err := h.Store.Create(ctx, orgID, actor.ID, in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("announcement created",
		zap.String("org_id", orgID.Hex()),
		zap.String("announcement_id", a.ID.Hex()),
		zap.String("status", a.Status))
	respond.JSON(w, http.StatusCreated, a)
}

// Update replaces an announcement's title, body and status.
// PUT /organizations/{id}/announcements/{aid}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "update announcement", func(ctx context.Context, orgID, aid primitive.ObjectID) (any, error) {
		var in announcementstore.Input
		if err := respond.DecodeJSON(r, &in); err != nil {
			return nil, err
		}
		return h.Store.Update(ctx, orgID, aid, in)
	})
}

// Delete removes an announcement.
// DELETE /organizations/{id}/announcements/{aid}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, "delete announcement", func(ctx context.Context, orgID, aid primitive.ObjectID) (any, error) {
		return nil, h.Store.Delete(ctx, orgID, aid)
	})
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, orgID, aid primitive.ObjectID) (any, error)) {
	_, orgID, err := h.target(r, true)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	aid, err := respond.PathID(r, "aid")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, op)
	defer cancel()

	out, err := fn(ctx, orgID, aid)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}
