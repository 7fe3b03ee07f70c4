package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewActor returns an actor with a fresh ID holding roles.
func NewActor(roles ...authz.Role) *authz.Actor {
	return &authz.Actor{
		ID:    primitive.NewObjectID(),
		Name:  "Test " + string(firstRole(roles)),
		Roles: authz.NewRoleSet(roles...),
	}
}

func firstRole(roles []authz.Role) authz.Role {
	if len(roles) == 0 {
		return "User"
	}
	return roles[0]
}

// RequesterActor, VolunteerActor and OrgAdminActor cover the common cases.
func RequesterActor() *authz.Actor { return NewActor(authz.RoleRequester) }
func VolunteerActor() *authz.Actor { return NewActor(authz.RoleVolunteer) }
func OrgAdminActor(orgID primitive.ObjectID) *authz.Actor {
	a := NewActor(authz.RoleOrganizationAdmin)
	a.OrganizationID = orgID
	return a
}

// WithActor puts a into the request context, bypassing the token middleware.
func WithActor(r *http.Request, a *authz.Actor) *http.Request {
	return r.WithContext(authz.WithActor(r.Context(), a))
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// NewJSONRequest creates a request whose body is body encoded as JSON.
// A string body is sent verbatim.
func NewJSONRequest(method, target string, body any) *http.Request {
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			panic(err)
		}
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// NewAuthenticatedRequest creates a JSON request with a in context.
func NewAuthenticatedRequest(method, target string, body any, a *authz.Actor) *http.Request {
	return WithActor(NewJSONRequest(method, target, body), a)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d (body=%s)", r.Code, expected, r.Body.String())
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	if !strings.Contains(r.Body.String(), expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON decodes the response body into v.
func (r *ResponseRecorder) DecodeJSON(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v (body=%s)", err, r.Body.String())
	}
}

// ErrorKind returns error.kind from an error response body, or "".
func (r *ResponseRecorder) ErrorKind() string {
	var body struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	_ = json.Unmarshal(r.Body.Bytes(), &body)
	return body.Error.Kind
}
