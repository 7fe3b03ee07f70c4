// internal/app/features/organizations/organizations.go
package organizations

import (
	"net/http"

	"github.com/dalemusser/reliefhub/internal/app/fulfillment"
	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/reliefhub/internal/app/system/normalize"
	"github.com/dalemusser/reliefhub/internal/app/system/respond"
	"github.com/dalemusser/reliefhub/internal/app/system/timeouts"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.uber.org/zap"
)

const maxNameLen = 200

type createInput struct {
	Name        string `json:"name"`
	ContactInfo string `json:"contact_info"`
}

// HandleCreate creates an organization and links the calling admin to it.
// POST /organizations
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor := authz.CurrentActor(r)
	if err := authz.Authorize(actor, authz.RoleOrganizationAdmin); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var in createInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	name := normalize.Name(htmlsanitize.PlainText(in.Name))
	switch {
	case name == "":
		respond.Error(w, r, h.Log, apperr.Validationf("name is required"))
		return
	case len(name) > maxNameLen:
		respond.Error(w, r, h.Log, apperr.Validationf("name must be at most %d characters", maxNameLen))
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create organization")
	defer cancel()

	org, err := h.Orgs.Create(ctx, models.Organization{
		Name:        name,
		ContactInfo: htmlsanitize.PlainText(in.ContactInfo),
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.Users.SetOrganization(ctx, actor.ID, org.ID); err != nil {
		h.Log.Error("organization created but creator not linked",
			zap.String("org_id", org.ID.Hex()),
			zap.String("user_id", actor.ID.Hex()),
			zap.Error(err))
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("organization created",
		zap.String("org_id", org.ID.Hex()),
		zap.String("created_by", actor.ID.Hex()))
	respond.JSON(w, http.StatusCreated, org)
}

// ServeGet returns one organization.
// GET /organizations/{id}
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	if err := authz.Authorize(authz.CurrentActor(r), authz.AllRoles...); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get organization")
	defer cancel()

	org, err := h.Orgs.GetByID(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, org)
}

// HandleCreateNeed files a help request on the organization's needs board.
// POST /organizations/{id}/needs
func (h *Handler) HandleCreateNeed(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var in fulfillment.RequestInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create organization need")
	defer cancel()

	req, err := h.Svc.CreateOrganizationNeed(ctx, authz.CurrentActor(r), id, in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, req)
}
