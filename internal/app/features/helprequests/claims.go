// internal/app/features/helprequests/claims.go
package helprequests

import (
	"net/http"

	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/respond"
	"github.com/dalemusser/reliefhub/internal/app/system/timeouts"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HandleClaim self-assigns the calling volunteer to a request.
// POST /help-requests/{id}/claims
func (h *Handler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "self-assign")
	defer cancel()

	a, err := h.Svc.SelfAssign(ctx, authz.CurrentActor(r), id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, a)
}

// HandleResolve closes a request through the owner path.
// POST /help-requests/{id}/resolve
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "resolve by owner")
	defer cancel()

	res, err := h.Svc.ResolveByOwner(ctx, authz.CurrentActor(r), id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}

// ServeMyAssignments lists the calling volunteer's assignments.
// GET /assignments/mine
func (h *Handler) ServeMyAssignments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list my assignments")
	defer cancel()

	list, err := h.Svc.ListMyAssignments(ctx, authz.CurrentActor(r))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if list == nil {
		list = []models.Assignment{}
	}
	respond.JSON(w, http.StatusOK, list)
}

type completeInput struct {
	RequestID string `json:"request_id"`
}

// HandleComplete closes a request through the volunteer path.
// POST /assignments/{id}/complete {"request_id": "..."}
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	assignmentID, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var in completeInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	requestID, err := primitive.ObjectIDFromHex(in.RequestID)
	if err != nil {
		respond.Error(w, r, h.Log, errBadRequestID(in.RequestID))
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "complete by volunteer")
	defer cancel()

	res, err := h.Svc.CompleteByVolunteer(ctx, authz.CurrentActor(r), assignmentID, requestID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, res)
}
