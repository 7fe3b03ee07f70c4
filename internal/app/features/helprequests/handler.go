// internal/app/features/helprequests/handler.go
package helprequests

import (
	"github.com/dalemusser/reliefhub/internal/app/fulfillment"
	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// Handler serves the help-request and assignment endpoints. It only decodes
// input, calls the coordinator and renders the result.
type Handler struct {
	Svc *fulfillment.Service
	Log *zap.Logger
}

func NewHandler(svc *fulfillment.Service, logger *zap.Logger) *Handler {
	return &Handler{Svc: svc, Log: logger}
}

func errBadRequestID(raw string) error {
	return apperr.Validationf("invalid request_id %q", raw)
}
