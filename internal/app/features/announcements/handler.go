// internal/app/features/announcements/handler.go
package announcements

import (
	announcementstore "github.com/dalemusser/reliefhub/internal/app/store/announcements"
	organizationstore "github.com/dalemusser/reliefhub/internal/app/store/organizations"
	"go.uber.org/zap"
)

// Handler owns all Announcements handlers. Routes are nested under an
// organization; the parent's {id} URL parameter selects it.
type Handler struct {
	Store *announcementstore.Store
	Orgs  *organizationstore.Store
	Log   *zap.Logger
}

// NewHandler constructs an Announcements Handler.
func NewHandler(store *announcementstore.Store, orgs *organizationstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Store: store,
		Orgs:  orgs,
		Log:   logger,
	}
}
