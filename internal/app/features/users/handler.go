// internal/app/features/users/handler.go
package users

import (
	"context"

	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// RoleUpdater loads a user and replaces their roles; orgID, when set, links
// the user too.
type RoleUpdater interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
	UpdateRoles(ctx context.Context, id primitive.ObjectID, roles []string, orgID *primitive.ObjectID) (models.User, error)
}

// Handler serves administrative account changes.
type Handler struct {
	Users RoleUpdater
	Log   *zap.Logger
}

func NewHandler(users RoleUpdater, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Log: logger}
}
