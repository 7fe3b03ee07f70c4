package fulfillment_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/fulfillment"
	"github.com/dalemusser/reliefhub/internal/app/store/memstore"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/metrics"
	"github.com/dalemusser/reliefhub/internal/app/system/txn"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	svc   *fulfillment.Service
	store *memstore.Store
	reg   *prometheus.Registry
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.New()
	reg := prometheus.NewRegistry()
	svc := fulfillment.NewService(store, store, zap.NewNop(), fulfillment.Options{
		Retry:   txn.Policy{MaxAttempts: 5},
		Metrics: metrics.NewFulfillment(reg),
	})
	return &env{svc: svc, store: store, reg: reg}
}

func actor(roles ...authz.Role) *authz.Actor {
	return &authz.Actor{ID: primitive.NewObjectID(), Name: "test", Roles: authz.NewRoleSet(roles...)}
}

func requester() *authz.Actor { return actor(authz.RoleRequester) }
func volunteer() *authz.Actor { return actor(authz.RoleVolunteer) }

func orgAdmin(org primitive.ObjectID) *authz.Actor {
	a := actor(authz.RoleOrganizationAdmin)
	a.OrganizationID = org
	return a
}

func (e *env) create(t *testing.T, owner *authz.Actor, needed int) models.HelpRequest {
	t.Helper()
	r, err := e.svc.CreateHelpRequest(context.Background(), owner, fulfillment.RequestInput{
		Type:             "food",
		Description:      "groceries for a family of four",
		Location:         "12 Elm St",
		VolunteersNeeded: needed,
	})
	if err != nil {
		t.Fatalf("CreateHelpRequest: %v", err)
	}
	return r
}

func (e *env) reload(t *testing.T, id primitive.ObjectID) models.HelpRequest {
	t.Helper()
	r, err := e.store.GetRequest(context.Background(), id)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	return r
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// counter reads one counter sample from the env's registry. labels are
// name/value pairs; every pair must match.
func (e *env) counter(t *testing.T, name string, labels ...string) float64 {
	t.Helper()
	families, err := e.reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for i := 0; i+1 < len(labels); i += 2 {
				if got[labels[i]] != labels[i+1] {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}
