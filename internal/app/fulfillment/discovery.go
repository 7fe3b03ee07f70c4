package fulfillment

import (
	"context"
	"iter"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	// UnknownScope stands in for scope metadata that cannot be resolved.
	UnknownScope = "unknown"
	// CommunityScopeName labels requests filed directly by a requester.
	CommunityScopeName = "Community"
)

// HelpRequestSummary is one row of the discovery listing.
type HelpRequestSummary struct {
	ID                 primitive.ObjectID `json:"id"`
	Type               string             `json:"type"`
	Description        string             `json:"description"`
	Location           string             `json:"location"`
	ScopeKind          string             `json:"scope_kind"`
	ScopeID            string             `json:"scope_id"`
	ScopeName          string             `json:"scope_name"`
	VolunteersNeeded   int                `json:"volunteers_needed"`
	VolunteersAssigned int                `json:"volunteers_assigned"`
	SlotsRemaining     int                `json:"slots_remaining"`
	CreatedAt          time.Time          `json:"created_at"`
}

// ListOpenHelpRequests returns a lazy sequence of open requests across every
// scope, oldest first. Ranging over it reads the store afresh each time, so a
// caller may restart it to see new data. Scope metadata that is missing or
// does not resolve is reported as UnknownScope; it never fails the listing.
func (s *Service) ListOpenHelpRequests(ctx context.Context, actor *authz.Actor) (iter.Seq2[HelpRequestSummary, error], error) {
	if err := authz.Authorize(actor, authz.RoleVolunteer); err != nil {
		return nil, err
	}
	return func(yield func(HelpRequestSummary, error) bool) {
		names := map[primitive.ObjectID]string{}
		for r, err := range s.store.OpenRequests(ctx) {
			if err != nil {
				yield(HelpRequestSummary{}, err)
				return
			}
			if r.Status != models.RequestOpen {
				continue
			}
			if !yield(s.summarize(ctx, r, names), nil) {
				return
			}
		}
	}, nil
}

func (s *Service) summarize(ctx context.Context, r models.HelpRequest, names map[primitive.ObjectID]string) HelpRequestSummary {
	sum := HelpRequestSummary{
		ID:                 r.ID,
		Type:               r.Type,
		Description:        r.Description,
		Location:           r.Location,
		ScopeKind:          UnknownScope,
		ScopeID:            UnknownScope,
		ScopeName:          UnknownScope,
		VolunteersNeeded:   r.VolunteersNeeded,
		VolunteersAssigned: r.VolunteersAssigned,
		SlotsRemaining:     r.SlotsRemaining(),
		CreatedAt:          r.CreatedAt,
	}
	if r.ScopeID.IsZero() {
		return sum
	}
	switch r.ScopeKind {
	case models.ScopeRequester:
		sum.ScopeKind = string(r.ScopeKind)
		sum.ScopeID = r.ScopeID.Hex()
		sum.ScopeName = CommunityScopeName
	case models.ScopeOrganization:
		sum.ScopeKind = string(r.ScopeKind)
		sum.ScopeID = r.ScopeID.Hex()
		sum.ScopeName = s.organizationName(ctx, r.ScopeID, names)
	}
	return sum
}

func (s *Service) organizationName(ctx context.Context, id primitive.ObjectID, names map[primitive.ObjectID]string) string {
	if n, ok := names[id]; ok {
		return n
	}
	n, err := s.scopes.OrganizationName(ctx, id)
	switch {
	case err == nil && n != "":
	case err == nil, apperr.Is(err, apperr.NotFound):
		n = UnknownScope
	default:
		s.log.Warn("scope name lookup failed",
			zap.String("organization_id", id.Hex()),
			zap.Error(err))
		n = UnknownScope
	}
	names[id] = n
	return n
}
