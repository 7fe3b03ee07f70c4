package authz_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func actorWith(roles ...authz.Role) *authz.Actor {
	return &authz.Actor{ID: primitive.NewObjectID(), Name: "Test Actor", Roles: authz.NewRoleSet(roles...)}
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		actor    *authz.Actor
		required []authz.Role
		want     apperr.Kind
	}{
		{name: "no actor", actor: nil, required: []authz.Role{authz.RoleVolunteer}, want: apperr.Unauthenticated},
		{name: "zero id", actor: &authz.Actor{Roles: authz.NewRoleSet(authz.RoleVolunteer)}, required: []authz.Role{authz.RoleVolunteer}, want: apperr.Unauthenticated},
		{name: "volunteer allowed", actor: actorWith(authz.RoleVolunteer), required: []authz.Role{authz.RoleVolunteer}, want: ""},
		{name: "requester denied volunteer op", actor: actorWith(authz.RoleRequester), required: []authz.Role{authz.RoleVolunteer}, want: apperr.Forbidden},
		{name: "multi-role intersects", actor: actorWith(authz.RoleRequester, authz.RoleVolunteer), required: []authz.Role{authz.RoleVolunteer}, want: ""},
		{name: "any of required", actor: actorWith(authz.RoleOrganizationAdmin), required: []authz.Role{authz.RoleRequester, authz.RoleOrganizationAdmin}, want: ""},
		{name: "no roles", actor: actorWith(), required: []authz.Role{authz.RoleRequester}, want: apperr.Forbidden},
		{name: "nothing required", actor: actorWith(), required: nil, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.Authorize(tt.actor, tt.required...)
			if got := apperr.KindOf(err); got != tt.want {
				t.Errorf("Authorize kind = %q, want %q (err=%v)", got, tt.want, err)
			}
		})
	}
}

func TestParseRoleSet(t *testing.T) {
	set, unknown := authz.ParseRoleSet([]string{" Volunteer ", "requester", "citizen"})
	if !set.Has(authz.RoleVolunteer) || !set.Has(authz.RoleRequester) {
		t.Errorf("expected volunteer and requester, got %v", set.Strings())
	}
	if len(unknown) != 1 || unknown[0] != "citizen" {
		t.Errorf("unknown: got %v, want [citizen]", unknown)
	}
	if got := set.Strings(); len(got) != 2 || got[0] != "requester" || got[1] != "volunteer" {
		t.Errorf("Strings order: got %v", got)
	}
}

func TestAdministersOrg(t *testing.T) {
	org := primitive.NewObjectID()
	admin := actorWith(authz.RoleOrganizationAdmin)
	admin.OrganizationID = org

	if !admin.AdministersOrg(org) {
		t.Error("expected admin to administer own org")
	}
	if admin.AdministersOrg(primitive.NewObjectID()) {
		t.Error("expected admin not to administer another org")
	}
	if admin.AdministersOrg(primitive.NilObjectID) {
		t.Error("nil org must never match")
	}
	vol := actorWith(authz.RoleVolunteer)
	vol.OrganizationID = org
	if vol.AdministersOrg(org) {
		t.Error("volunteer linked to org is not an admin")
	}
}

func TestActorContext(t *testing.T) {
	if _, ok := authz.ActorFrom(context.Background()); ok {
		t.Error("expected no actor in empty context")
	}
	a := actorWith(authz.RoleVolunteer)
	req := httptest.NewRequest("GET", "/test", nil)
	req = req.WithContext(authz.WithActor(req.Context(), a))
	if got := authz.CurrentActor(req); got != a {
		t.Errorf("CurrentActor: got %v, want %v", got, a)
	}
}
