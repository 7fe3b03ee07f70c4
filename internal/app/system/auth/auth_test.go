package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/system/auth"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const secret = "test-secret-must-be-at-least-32-chars"

func newManager(t *testing.T, fetcher auth.UserFetcher) *auth.Manager {
	t.Helper()
	m, err := auth.NewManager(secret, "reliefhub-test", fetcher, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

// echo reports the actor it sees.
func echo(t *testing.T, seen **authz.Actor) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, _ := authz.ActorFrom(r.Context())
		*seen = a
		w.WriteHeader(http.StatusOK)
	})
}

func TestNewManager_ShortSecret(t *testing.T) {
	if _, err := auth.NewManager("short", "", nil, nil); err == nil {
		t.Error("expected error for short secret")
	}
}

func TestLoadActor_ValidToken(t *testing.T) {
	m := newManager(t, nil)
	org := primitive.NewObjectID()
	want := &authz.Actor{
		ID:             primitive.NewObjectID(),
		Name:           "Ada",
		Roles:          authz.NewRoleSet(authz.RoleVolunteer, authz.RoleOrganizationAdmin),
		OrganizationID: org,
	}
	token, err := m.IssueToken(want, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	var seen *authz.Actor
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	m.LoadActor(echo(t, &seen)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusOK)
	}
	if seen == nil || seen.ID != want.ID || seen.Name != "Ada" || seen.OrganizationID != org {
		t.Fatalf("actor: got %+v", seen)
	}
	if !seen.Has(authz.RoleVolunteer) || !seen.Has(authz.RoleOrganizationAdmin) || seen.Has(authz.RoleRequester) {
		t.Errorf("roles: got %v", seen.Roles.Strings())
	}
}

func TestLoadActor_Rejections(t *testing.T) {
	m := newManager(t, nil)
	a := &authz.Actor{ID: primitive.NewObjectID(), Roles: authz.NewRoleSet(authz.RoleVolunteer)}
	expired, _ := m.IssueToken(a, -time.Minute)

	other, _ := auth.NewManager("another-secret-that-is-32-chars-long!", "reliefhub-test", nil, nil)
	forged, _ := other.IssueToken(a, time.Hour)

	noneAlg, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": a.ID.Hex()}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	badSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "not-an-id", "iss": "reliefhub-test", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))

	tests := []struct {
		name   string
		header string
	}{
		{"not bearer", "Basic abc"},
		{"garbage", "Bearer abc.def.ghi"},
		{"expired", "Bearer " + expired},
		{"wrong secret", "Bearer " + forged},
		{"alg none", "Bearer " + noneAlg},
		{"bad subject", "Bearer " + badSub},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *authz.Actor
			req := httptest.NewRequest("GET", "/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			m.LoadActor(echo(t, &seen)).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if seen != nil {
				t.Error("next handler should not run")
			}
		})
	}
}

func TestLoadActor_AnonymousPassesThrough(t *testing.T) {
	m := newManager(t, nil)
	var seen *authz.Actor
	rec := httptest.NewRecorder()
	m.LoadActor(echo(t, &seen)).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusOK || seen != nil {
		t.Errorf("anonymous: status %d actor %v", rec.Code, seen)
	}
}

type stubFetcher struct {
	actor *authz.Actor
}

func (s stubFetcher) FetchActor(ctx context.Context, id primitive.ObjectID) (*authz.Actor, error) {
	if s.actor == nil || s.actor.ID != id {
		return nil, nil
	}
	return s.actor, nil
}

func TestLoadActor_FetcherRefreshesRoles(t *testing.T) {
	id := primitive.NewObjectID()
	stored := &authz.Actor{ID: id, Name: "Ada", Roles: authz.NewRoleSet(authz.RoleOrganizationAdmin)}
	m := newManager(t, stubFetcher{actor: stored})

	// Token still says volunteer; the account was upgraded since.
	token, _ := m.IssueToken(&authz.Actor{ID: id, Roles: authz.NewRoleSet(authz.RoleVolunteer)}, time.Hour)
	var seen *authz.Actor
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	m.LoadActor(echo(t, &seen)).ServeHTTP(httptest.NewRecorder(), req)

	if seen == nil || !seen.Has(authz.RoleOrganizationAdmin) || seen.Has(authz.RoleVolunteer) {
		t.Errorf("actor: got %+v", seen)
	}

	// Unknown account.
	token, _ = m.IssueToken(&authz.Actor{ID: primitive.NewObjectID(), Roles: authz.NewRoleSet(authz.RoleVolunteer)}, time.Hour)
	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	m.LoadActor(echo(t, &seen)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown account: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := auth.RequireRole(authz.RoleVolunteer)(ok)

	tests := []struct {
		name  string
		actor *authz.Actor
		want  int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"requester", &authz.Actor{ID: primitive.NewObjectID(), Roles: authz.NewRoleSet(authz.RoleRequester)}, http.StatusForbidden},
		{"volunteer", &authz.Actor{ID: primitive.NewObjectID(), Roles: authz.NewRoleSet(authz.RoleVolunteer)}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.actor != nil {
				req = req.WithContext(authz.WithActor(req.Context(), tt.actor))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestRequireSignedIn(t *testing.T) {
	h := auth.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
