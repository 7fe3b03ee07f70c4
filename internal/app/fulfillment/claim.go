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

// claimSnapshot is what one claim attempt reads.
type claimSnapshot struct {
	request     models.HelpRequest
	alreadyHeld bool
}

// decideClaim is the pure half of a claim attempt.
func decideClaim(snap claimSnapshot, volunteerID, assignmentID primitive.ObjectID, now time.Time) (Intent, models.Assignment, error) {
	if snap.alreadyHeld {
		return Intent{}, models.Assignment{}, apperr.Conflictf("duplicate claim")
	}
	next, err := ApplyClaim(snap.request, now)
	if err != nil {
		return Intent{}, models.Assignment{}, err
	}
	a := models.Assignment{
		ID:              assignmentID,
		VolunteerID:     volunteerID,
		SourceRequestID: next.ID,
		ScopeKind:       next.ScopeKind,
		ScopeID:         next.ScopeID,
		Status:          models.AssignmentInProgress,
		AssignedAt:      now.UTC(),
	}
	return Intent{Request: &next, NewAssignment: &a}, a, nil
}

// SelfAssign claims one slot on requestID for the calling volunteer.
//
// Each attempt re-reads the request and the volunteer's existing claim, then
// commits the incremented request together with the new Assignment. If another
// writer got there first the attempt aborts and is retried; after the retry
// budget the caller gets Conflict.
func (s *Service) SelfAssign(ctx context.Context, actor *authz.Actor, requestID primitive.ObjectID) (models.Assignment, error) {
	if err := authz.Authorize(actor, authz.RoleVolunteer); err != nil {
		return models.Assignment{}, err
	}

	assignmentID := primitive.NewObjectID()
	var claimed models.Assignment
	err := txn.Retry(ctx, s.retry, s.log, "claim", func(ctx context.Context, attempt int) error {
		req, err := s.store.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		_, held, err := s.store.FindClaim(ctx, actor.ID, requestID)
		if err != nil {
			return err
		}
		intent, a, err := decideClaim(claimSnapshot{request: req, alreadyHeld: held}, actor.ID, assignmentID, s.now())
		if err != nil {
			return err
		}
		if err := s.commit(ctx, "claim", intent); err != nil {
			return err
		}
		claimed = a
		return nil
	})

	s.metrics.Claim(claimOutcome(err))
	if err != nil {
		s.log.Info("claim rejected",
			zap.String("request_id", requestID.Hex()),
			zap.String("volunteer_id", actor.ID.Hex()),
			zap.String("kind", string(apperr.KindOf(err))),
			zap.Error(err))
		return models.Assignment{}, err
	}
	s.log.Info("claim accepted",
		zap.String("request_id", requestID.Hex()),
		zap.String("volunteer_id", actor.ID.Hex()),
		zap.String("assignment_id", claimed.ID.Hex()))
	return claimed, nil
}

func claimOutcome(err error) string {
	switch apperr.KindOf(err) {
	case "":
		return metrics.OutcomeSuccess
	case apperr.Conflict:
		return metrics.OutcomeConflict
	case apperr.NotFound:
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}
