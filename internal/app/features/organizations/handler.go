// internal/app/features/organizations/handler.go
package organizations

import (
	"context"

	"github.com/dalemusser/reliefhub/internal/app/fulfillment"
	organizationstore "github.com/dalemusser/reliefhub/internal/app/store/organizations"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// UserLinker links an account to the organization it administers.
type UserLinker interface {
	SetOrganization(ctx context.Context, id, orgID primitive.ObjectID) error
}

// Handler is the feature-level entry point for Organizations.
type Handler struct {
	Orgs  *organizationstore.Store
	Users UserLinker
	Svc   *fulfillment.Service
	Log   *zap.Logger
}

// NewHandler constructs a new Organizations handler.
func NewHandler(orgs *organizationstore.Store, users UserLinker, svc *fulfillment.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Orgs:  orgs,
		Users: users,
		Svc:   svc,
		Log:   logger,
	}
}
