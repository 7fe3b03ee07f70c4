// Package respond writes JSON responses and maps classified errors to HTTP
// statuses.
package respond

import (
	"net/http"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/waffle/httputil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxBodyBytes caps request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

// JSON writes v with the given status. A nil v sends headers only.
func JSON(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		return
	}
	httputil.WriteJSON(w, status, v)
}

// ErrorBody is the shape of every error response:
//
//	{"error":{"kind":"conflict","message":"request is full"}}
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// Status maps an error kind to its HTTP status.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Forbidden:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Conflict, apperr.Aborted:
		return http.StatusConflict
	case apperr.MethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an ErrorBody. Internal failures are logged with the
// underlying cause; the client only sees a generic message.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := Status(kind)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	JSON(w, status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: apperr.Message(err)}})
}

// DecodeJSON reads a JSON request body into v. Empty bodies, unknown fields
// and trailing data are rejected as Validation errors whose message is safe
// to show the client.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(nil, r.Body, MaxBodyBytes)
	}
	if err := httputil.BindJSON(r, v); err != nil {
		return apperr.Wrap(apperr.Validation, err, "invalid JSON body: %v", err)
	}
	return nil
}

// PathID parses the chi URL parameter name as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Validationf("invalid %s %q", name, raw)
	}
	return id, nil
}
