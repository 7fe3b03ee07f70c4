// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is an account record. Registration and login live outside this service;
// we read roles from here and let administrators upgrade them.
//
// Roles holds raw role names (requester, volunteer, organization_admin). One
// account may hold several.
type User struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	FullName       string              `bson:"full_name" json:"full_name"`
	FullNameCI     string              `bson:"full_name_ci" json:"-"`
	Email          string              `bson:"email" json:"email"`
	Roles          []string            `bson:"roles" json:"roles"`
	Status         string              `bson:"status,omitempty" json:"status,omitempty"` // active | disabled
	OrganizationID *primitive.ObjectID `bson:"organization_id,omitempty" json:"organization_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
