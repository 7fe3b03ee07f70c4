package fulfillment

import (
	"context"
	"iter"

	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store is the atomic document store the coordinators run against.
//
// Reads return apperr NotFound for missing records. Commit applies an Intent
// all-or-nothing and fails with apperr Aborted when any record it guards
// changed since it was read.
type Store interface {
	InsertRequest(ctx context.Context, req models.HelpRequest) error
	GetRequest(ctx context.Context, id primitive.ObjectID) (models.HelpRequest, error)
	GetAssignment(ctx context.Context, id primitive.ObjectID) (models.Assignment, error)
	// FindClaim returns the volunteer's assignment on requestID, if any.
	FindClaim(ctx context.Context, volunteerID, requestID primitive.ObjectID) (models.Assignment, bool, error)
	Commit(ctx context.Context, in Intent) error

	// OpenRequests yields open requests oldest first. Each range over the
	// returned sequence performs a fresh read.
	OpenRequests(ctx context.Context) iter.Seq2[models.HelpRequest, error]
	ListRequestsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.HelpRequest, error)
	ListAssignmentsByVolunteer(ctx context.Context, volunteerID primitive.ObjectID) ([]models.Assignment, error)
}

// Intent is what one attempt wants written if nothing it read has changed.
//
// Request and Assignment carry the next state with Version still set to the
// version that was read; the store guards on it and bumps it on write.
// NewAssignment is inserted and must not collide with an existing claim for
// the same (volunteer, request) pair.
type Intent struct {
	Request       *models.HelpRequest
	Assignment    *models.Assignment
	NewAssignment *models.Assignment
}

// Empty reports whether the intent writes nothing.
func (in Intent) Empty() bool {
	return in.Request == nil && in.Assignment == nil && in.NewAssignment == nil
}

// ScopeResolver names the organization a request is filed under.
type ScopeResolver interface {
	// OrganizationName returns apperr NotFound when the organization is unknown.
	OrganizationName(ctx context.Context, id primitive.ObjectID) (string, error)
}
