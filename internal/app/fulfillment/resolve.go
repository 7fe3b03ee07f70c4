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

// Resolution reports the outcome of a resolve or complete call.
type Resolution struct {
	RequestID     primitive.ObjectID   `json:"request_id"`
	AssignmentID  *primitive.ObjectID  `json:"assignment_id,omitempty"`
	Status        models.RequestStatus `json:"status"`
	ClosedBy      *models.ClosedBy     `json:"closed_by,omitempty"`
	AlreadyClosed bool                 `json:"already_closed"`
}

func resolutionOf(r models.HelpRequest, already bool) Resolution {
	return Resolution{
		RequestID:     r.ID,
		Status:        r.Status,
		ClosedBy:      r.ClosedBy,
		AlreadyClosed: already,
	}
}

// canOwnerResolve reports whether actor may close r on the owner path.
// Organization admins may close any request filed under their organization.
func canOwnerResolve(actor *authz.Actor, r models.HelpRequest) bool {
	if r.OwnerID == actor.ID {
		return true
	}
	return r.ScopeKind == models.ScopeOrganization &&
		actor.Has(authz.RoleOrganizationAdmin) &&
		actor.AdministersOrg(r.ScopeID)
}

// ResolveByOwner closes a request on behalf of its owner. It never touches
// assignments. Resolving a closed request succeeds with AlreadyClosed set.
func (s *Service) ResolveByOwner(ctx context.Context, actor *authz.Actor, requestID primitive.ObjectID) (Resolution, error) {
	if err := authz.Authorize(actor, authz.RoleRequester, authz.RoleOrganizationAdmin); err != nil {
		return Resolution{}, err
	}

	var res Resolution
	err := txn.Retry(ctx, s.retry, s.log, "resolve", func(ctx context.Context, attempt int) error {
		req, err := s.store.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !canOwnerResolve(actor, req) {
			return apperr.Forbiddenf("only the owner can resolve this request")
		}
		next, changed := ApplyClose(req, models.ClosedBy{ActorID: actor.ID, Path: models.ClosedByOwner}, s.now())
		if !changed {
			res = resolutionOf(req, true)
			return nil
		}
		if err := s.commit(ctx, "resolve", Intent{Request: &next}); err != nil {
			return err
		}
		res = resolutionOf(next, false)
		return nil
	})

	s.recordResolution(models.ClosedByOwner, res, err)
	if err != nil {
		return Resolution{}, err
	}
	s.log.Info("help request resolved by owner",
		zap.String("request_id", requestID.Hex()),
		zap.String("actor_id", actor.ID.Hex()),
		zap.Bool("already_closed", res.AlreadyClosed))
	return res, nil
}

// decideCompletion is the pure half of a volunteer completion attempt.
// The returned intent is empty when there is nothing left to write.
func decideCompletion(actor *authz.Actor, a models.Assignment, req models.HelpRequest, now time.Time) (Intent, Resolution) {
	var in Intent
	if !a.IsCompleted() {
		done := a
		t := now.UTC()
		done.Status = models.AssignmentCompleted
		done.CompletedAt = &t
		in.Assignment = &done
	}
	next, changed := ApplyClose(req, models.ClosedBy{ActorID: actor.ID, Path: models.ClosedByVolunteer}, now)
	if changed {
		in.Request = &next
	}
	res := resolutionOf(next, !changed)
	id := a.ID
	res.AssignmentID = &id
	return in, res
}

// CompleteByVolunteer completes the volunteer's assignment and closes the
// request it belongs to in one atomic unit. If the request is already closed
// only the assignment is completed.
func (s *Service) CompleteByVolunteer(ctx context.Context, actor *authz.Actor, assignmentID, requestID primitive.ObjectID) (Resolution, error) {
	if err := authz.Authorize(actor, authz.RoleVolunteer); err != nil {
		return Resolution{}, err
	}

	var res Resolution
	err := txn.Retry(ctx, s.retry, s.log, "complete", func(ctx context.Context, attempt int) error {
		a, err := s.store.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a.VolunteerID != actor.ID {
			return apperr.Forbiddenf("assignment belongs to another volunteer")
		}
		if a.SourceRequestID != requestID {
			return apperr.Forbiddenf("assignment does not belong to this request")
		}
		req, err := s.store.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		intent, r := decideCompletion(actor, a, req, s.now())
		if !intent.Empty() {
			if err := s.commit(ctx, "complete", intent); err != nil {
				return err
			}
		}
		res = r
		return nil
	})

	s.recordResolution(models.ClosedByVolunteer, res, err)
	if err != nil {
		return Resolution{}, err
	}
	s.log.Info("assignment completed",
		zap.String("request_id", requestID.Hex()),
		zap.String("assignment_id", assignmentID.Hex()),
		zap.String("volunteer_id", actor.ID.Hex()),
		zap.Bool("already_closed", res.AlreadyClosed))
	return res, nil
}

func (s *Service) recordResolution(path models.ClosePath, res Resolution, err error) {
	outcome := metrics.OutcomeSuccess
	switch apperr.KindOf(err) {
	case "":
		if res.AlreadyClosed {
			outcome = metrics.OutcomeNoop
		}
	case apperr.NotFound:
		outcome = metrics.OutcomeNotFound
	case apperr.Forbidden, apperr.Unauthenticated:
		outcome = metrics.OutcomeForbidden
	case apperr.Conflict:
		outcome = metrics.OutcomeConflict
	default:
		outcome = metrics.OutcomeError
	}
	s.metrics.Resolution(string(path), outcome)
}
