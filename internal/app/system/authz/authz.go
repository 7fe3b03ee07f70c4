// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is an authenticated identity with a verified role set.
// OrganizationID is NilObjectID unless the actor is linked to an organization.
type Actor struct {
	ID             primitive.ObjectID
	Name           string
	Roles          RoleSet
	OrganizationID primitive.ObjectID
}

// Has reports whether the actor holds role r.
func (a *Actor) Has(r Role) bool {
	return a != nil && a.Roles.Has(r)
}

// AdministersOrg reports whether the actor is an organization admin of orgID.
func (a *Actor) AdministersOrg(orgID primitive.ObjectID) bool {
	return a.Has(RoleOrganizationAdmin) && !orgID.IsZero() && a.OrganizationID == orgID
}

// Authorize is the role gate every operation passes first.
// It fails with Unauthenticated when there is no actor and with Forbidden when
// the actor's roles do not intersect required.
func Authorize(a *Actor, required ...Role) error {
	if a == nil || a.ID.IsZero() {
		return apperr.New(apperr.Unauthenticated, "authentication required")
	}
	if len(required) == 0 || a.Roles.Intersects(required...) {
		return nil
	}
	names := make([]string, len(required))
	for i, r := range required {
		names[i] = string(r)
	}
	return apperr.Forbiddenf("requires role %s", strings.Join(names, " or "))
}

type ctxKey struct{}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// ActorFrom returns the actor stored in ctx, if any.
func ActorFrom(ctx context.Context) (*Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(*Actor)
	return a, ok && a != nil
}

// CurrentActor returns the request's actor, or nil when nobody is signed in.
func CurrentActor(r *http.Request) *Actor {
	a, _ := ActorFrom(r.Context())
	return a
}
