// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/respond"
)

// NotFound renders the JSON error body for unknown routes.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, nil, apperr.NotFoundf("no route for %s %s", r.Method, r.URL.Path))
}

// MethodNotAllowed renders a JSON 405 for a known path with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.Error(w, r, nil, apperr.New(apperr.MethodNotAllowed, "method %s not allowed", r.Method))
}
