// Package fulfillment coordinates help requests: the request state machine,
// the claim protocol volunteers use to take a slot, the two resolution paths
// that close a request, and the cross-scope discovery listing.
//
// All writes go through Store.Commit under an explicit bounded retry, so many
// volunteers can contend for the same request without over-committing it.
package fulfillment

import (
	"context"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/metrics"
	"github.com/dalemusser/reliefhub/internal/app/system/txn"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Options tunes a Service. Zero values pick defaults.
type Options struct {
	Retry   txn.Policy
	Metrics *metrics.Fulfillment
	Now     func() time.Time
}

// Service is the entry point for every help-request operation.
type Service struct {
	store   Store
	scopes  ScopeResolver
	log     *zap.Logger
	retry   txn.Policy
	metrics *metrics.Fulfillment
	now     func() time.Time
}

// NewService wires a Service to its store and scope resolver.
func NewService(store Store, scopes ScopeResolver, log *zap.Logger, opts Options) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store:   store,
		scopes:  scopes,
		log:     log,
		retry:   opts.Retry,
		metrics: opts.Metrics,
		now:     opts.Now,
	}
	if s.retry.MaxAttempts == 0 {
		s.retry = txn.DefaultPolicy
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateHelpRequest publishes a need in the requester's own scope.
func (s *Service) CreateHelpRequest(ctx context.Context, actor *authz.Actor, in RequestInput) (models.HelpRequest, error) {
	if err := authz.Authorize(actor, authz.RoleRequester); err != nil {
		return models.HelpRequest{}, err
	}
	req, err := NewHelpRequest(in, actor.ID, models.ScopeRequester, actor.ID, s.now())
	if err != nil {
		return models.HelpRequest{}, err
	}
	return s.insert(ctx, req)
}

// CreateOrganizationNeed publishes a need on an organization's board. Only
// that organization's admins may post.
func (s *Service) CreateOrganizationNeed(ctx context.Context, actor *authz.Actor, orgID primitive.ObjectID, in RequestInput) (models.HelpRequest, error) {
	if err := authz.Authorize(actor, authz.RoleOrganizationAdmin); err != nil {
		return models.HelpRequest{}, err
	}
	if !actor.AdministersOrg(orgID) {
		return models.HelpRequest{}, apperr.Forbiddenf("not an admin of this organization")
	}
	if _, err := s.scopes.OrganizationName(ctx, orgID); err != nil {
		return models.HelpRequest{}, err
	}
	req, err := NewHelpRequest(in, actor.ID, models.ScopeOrganization, orgID, s.now())
	if err != nil {
		return models.HelpRequest{}, err
	}
	return s.insert(ctx, req)
}

func (s *Service) insert(ctx context.Context, req models.HelpRequest) (models.HelpRequest, error) {
	if err := s.store.InsertRequest(ctx, req); err != nil {
		s.log.Error("insert help request failed",
			zap.String("request_id", req.ID.Hex()),
			zap.Error(err))
		return models.HelpRequest{}, err
	}
	s.log.Info("help request created",
		zap.String("request_id", req.ID.Hex()),
		zap.String("owner_id", req.OwnerID.Hex()),
		zap.String("scope_kind", string(req.ScopeKind)),
		zap.Int("volunteers_needed", req.VolunteersNeeded))
	return req, nil
}

// GetHelpRequest returns one request to any signed-in actor.
func (s *Service) GetHelpRequest(ctx context.Context, actor *authz.Actor, id primitive.ObjectID) (models.HelpRequest, error) {
	if err := authz.Authorize(actor, authz.AllRoles...); err != nil {
		return models.HelpRequest{}, err
	}
	return s.store.GetRequest(ctx, id)
}

// ListMyHelpRequests returns the requests the actor published, newest first.
func (s *Service) ListMyHelpRequests(ctx context.Context, actor *authz.Actor) ([]models.HelpRequest, error) {
	if err := authz.Authorize(actor, authz.RoleRequester, authz.RoleOrganizationAdmin); err != nil {
		return nil, err
	}
	return s.store.ListRequestsByOwner(ctx, actor.ID)
}

// ListMyAssignments returns the actor's claims, newest first.
func (s *Service) ListMyAssignments(ctx context.Context, actor *authz.Actor) ([]models.Assignment, error) {
	if err := authz.Authorize(actor, authz.RoleVolunteer); err != nil {
		return nil, err
	}
	return s.store.ListAssignmentsByVolunteer(ctx, actor.ID)
}

// commit wraps Store.Commit and counts aborts.
func (s *Service) commit(ctx context.Context, op string, in Intent) error {
	err := s.store.Commit(ctx, in)
	if apperr.Is(err, apperr.Aborted) {
		s.metrics.Abort(op)
	}
	return err
}
