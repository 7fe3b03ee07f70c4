// internal/domain/models/helprequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RequestStatus is the lifecycle state of a HelpRequest.
type RequestStatus string

const (
	// RequestOpen accepts claims: volunteers_assigned < volunteers_needed.
	RequestOpen RequestStatus = "open"
	// RequestInProgress means every slot is claimed but nobody resolved the need yet.
	RequestInProgress RequestStatus = "in_progress"
	// RequestClosed is terminal.
	RequestClosed RequestStatus = "closed"
)

// Valid reports whether s is a known request status.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestOpen, RequestInProgress, RequestClosed:
		return true
	}
	return false
}

// ScopeKind says what kind of namespace a HelpRequest is filed under.
type ScopeKind string

const (
	ScopeRequester    ScopeKind = "requester"    // the requester's own broadcast space
	ScopeOrganization ScopeKind = "organization" // an organization's needs board
)

// ClosePath records which resolution path closed a request.
type ClosePath string

const (
	ClosedByOwner     ClosePath = "owner"
	ClosedByVolunteer ClosePath = "volunteer"
)

// ClosedBy identifies who closed a request and through which path.
type ClosedBy struct {
	ActorID primitive.ObjectID `bson:"actor_id" json:"actor_id"`
	Path    ClosePath          `bson:"path" json:"path"`
}

// HelpRequest is a need for assistance with a target number of volunteer slots.
//
// Version is the optimistic-concurrency token; every committed write bumps it.
type HelpRequest struct {
	ID                 primitive.ObjectID `bson:"_id" json:"id"`
	OwnerID            primitive.ObjectID `bson:"owner_id" json:"owner_id"`
	ScopeKind          ScopeKind          `bson:"scope_kind" json:"scope_kind"`
	ScopeID            primitive.ObjectID `bson:"scope_id" json:"scope_id"`
	Type               string             `bson:"type" json:"type"`
	Description        string             `bson:"description" json:"description"`
	Location           string             `bson:"location" json:"location"`
	Status             RequestStatus      `bson:"status" json:"status"`
	VolunteersNeeded   int                `bson:"volunteers_needed" json:"volunteers_needed"`
	VolunteersAssigned int                `bson:"volunteers_assigned" json:"volunteers_assigned"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
	ClosedAt           *time.Time         `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
	ClosedBy           *ClosedBy          `bson:"closed_by,omitempty" json:"closed_by,omitempty"`
	Version            int64              `bson:"version" json:"-"`
}

// IsClosed reports whether the request reached its terminal state.
func (r HelpRequest) IsClosed() bool { return r.Status == RequestClosed }

// SlotsRemaining is the number of claims the request can still accept.
func (r HelpRequest) SlotsRemaining() int {
	if r.IsClosed() || r.VolunteersAssigned >= r.VolunteersNeeded {
		return 0
	}
	return r.VolunteersNeeded - r.VolunteersAssigned
}
