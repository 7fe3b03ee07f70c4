package fulfillment

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxTypeLen        = 64
	maxLocationLen    = 256
	maxDescriptionLen = 4000
	// MaxVolunteersNeeded bounds a single request.
	MaxVolunteersNeeded = 1000

	defaultDescription = "No description provided"
)

// RequestInput is what a requester supplies when publishing a need.
type RequestInput struct {
	Type             string `json:"type"`
	Description      string `json:"description"`
	Location         string `json:"location"`
	VolunteersNeeded int    `json:"volunteers_needed"`
}

// NewHelpRequest validates in and returns an Open request with no claims.
// VolunteersNeeded defaults to 1 when omitted; location is optional.
func NewHelpRequest(in RequestInput, owner primitive.ObjectID, kind models.ScopeKind, scope primitive.ObjectID, now time.Time) (models.HelpRequest, error) {
	typ := htmlsanitize.PlainText(in.Type)
	loc := htmlsanitize.PlainText(in.Location)
	desc := htmlsanitize.PlainText(in.Description)

	switch {
	case typ == "":
		return models.HelpRequest{}, apperr.Validationf("type is required")
	case utf8.RuneCountInString(typ) > maxTypeLen:
		return models.HelpRequest{}, apperr.Validationf("type must be at most %d characters", maxTypeLen)
	case utf8.RuneCountInString(loc) > maxLocationLen:
		return models.HelpRequest{}, apperr.Validationf("location must be at most %d characters", maxLocationLen)
	case utf8.RuneCountInString(desc) > maxDescriptionLen:
		return models.HelpRequest{}, apperr.Validationf("description must be at most %d characters", maxDescriptionLen)
	case in.VolunteersNeeded < 0 || in.VolunteersNeeded > MaxVolunteersNeeded:
		return models.HelpRequest{}, apperr.Validationf("volunteers_needed must be between 1 and %d", MaxVolunteersNeeded)
	}
	needed := in.VolunteersNeeded
	if needed == 0 {
		needed = 1
	}
	if desc == "" {
		desc = defaultDescription
	}

	now = now.UTC()
	return models.HelpRequest{
		ID:               primitive.NewObjectID(),
		OwnerID:          owner,
		ScopeKind:        kind,
		ScopeID:          scope,
		Type:             strings.ToLower(typ),
		Description:      desc,
		Location:         loc,
		Status:           models.RequestOpen,
		VolunteersNeeded: needed,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ApplyClaim reserves one slot. It rejects closed and full requests and moves
// the request to InProgress when the last slot is taken.
func ApplyClaim(r models.HelpRequest, now time.Time) (models.HelpRequest, error) {
	if r.IsClosed() {
		return r, apperr.Conflictf("request is closed")
	}
	if r.Status != models.RequestOpen || r.VolunteersAssigned >= r.VolunteersNeeded {
		return r, apperr.Conflictf("request is full")
	}
	r.VolunteersAssigned++
	if r.VolunteersAssigned == r.VolunteersNeeded {
		r.Status = models.RequestInProgress
	}
	r.UpdatedAt = now.UTC()
	return r, nil
}

// ApplyClose moves any non-closed request to Closed. Closing a closed request
// returns it unchanged with changed=false.
func ApplyClose(r models.HelpRequest, by models.ClosedBy, now time.Time) (next models.HelpRequest, changed bool) {
	if r.IsClosed() {
		return r, false
	}
	now = now.UTC()
	r.Status = models.RequestClosed
	r.ClosedAt = &now
	r.ClosedBy = &by
	r.UpdatedAt = now
	return r, true
}
