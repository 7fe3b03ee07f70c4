// internal/app/features/helprequests/requests.go
package helprequests

import (
	"net/http"

	"github.com/dalemusser/reliefhub/internal/app/fulfillment"
	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/respond"
	"github.com/dalemusser/reliefhub/internal/app/system/timeouts"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.uber.org/zap"
)

// HandleCreate publishes a need in the requester's own scope.
// POST /help-requests
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in fulfillment.RequestInput
	if err := respond.DecodeJSON(r, &in); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "create help request")
	defer cancel()

	req, err := h.Svc.CreateHelpRequest(ctx, authz.CurrentActor(r), in)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, req)
}

// ServeGet returns one request.
// GET /help-requests/{id}
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get help request")
	defer cancel()

	req, err := h.Svc.GetHelpRequest(ctx, authz.CurrentActor(r), id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, req)
}

// ServeMine lists the caller's own requests, newest first.
// GET /help-requests/mine
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list my help requests")
	defer cancel()

	reqs, err := h.Svc.ListMyHelpRequests(ctx, authz.CurrentActor(r))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if reqs == nil {
		reqs = []models.HelpRequest{}
	}
	respond.JSON(w, http.StatusOK, reqs)
}

// ServeOpen streams the discovery listing as a JSON array. Rows are written
// as the store yields them. A failure before the first row is reported as a
// normal error response. A failure mid-stream still closes the array, so the
// body parses, and sets the X-Stream-Error trailer to mark it truncated.
// GET /help-requests/open
func (h *Handler) ServeOpen(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "list open help requests")
	defer cancel()

	seq, err := h.Svc.ListOpenHelpRequests(ctx, authz.CurrentActor(r))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	sw := newArrayWriter(w)
	for row, err := range seq {
		if err != nil {
			if !sw.started() {
				respond.Error(w, r, h.Log, err)
				return
			}
			h.Log.Error("discovery stream aborted", zap.Error(err), zap.Int("rows", sw.rows))
			sw.fail(apperr.Message(err))
			return
		}
		if err := sw.write(row); err != nil {
			h.Log.Warn("discovery stream write failed", zap.Error(err))
			return
		}
	}
	sw.close()
}
