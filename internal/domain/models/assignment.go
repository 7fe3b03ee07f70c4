// internal/domain/models/assignment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AssignmentStatus is the lifecycle state of an Assignment.
type AssignmentStatus string

const (
	AssignmentInProgress AssignmentStatus = "in_progress"
	AssignmentCompleted  AssignmentStatus = "completed"
)

// Assignment is a volunteer's claim on one HelpRequest.
// A (VolunteerID, SourceRequestID) pair has at most one Assignment.
type Assignment struct {
	ID              primitive.ObjectID `bson:"_id" json:"id"`
	VolunteerID     primitive.ObjectID `bson:"volunteer_id" json:"volunteer_id"`
	SourceRequestID primitive.ObjectID `bson:"source_request_id" json:"source_request_id"`
	ScopeKind       ScopeKind          `bson:"scope_kind" json:"scope_kind"`
	ScopeID         primitive.ObjectID `bson:"scope_id" json:"scope_id"`
	Status          AssignmentStatus   `bson:"status" json:"status"`
	AssignedAt      time.Time          `bson:"assigned_at" json:"assigned_at"`
	CompletedAt     *time.Time         `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Version         int64              `bson:"version" json:"-"`
}

// IsCompleted reports whether the assignment was completed.
func (a Assignment) IsCompleted() bool { return a.Status == AssignmentCompleted }
