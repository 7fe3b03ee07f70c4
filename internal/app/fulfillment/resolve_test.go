package fulfillment_test

import (
	"context"
	"testing"

	"github.com/dalemusser/reliefhub/internal/app/fulfillment"
	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// Volunteer completes first; the owner's later resolve is a no-op.
func TestCompleteThenOwnerResolve(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := requester()
	vol := volunteer()
	r := e.create(t, owner, 2)
	a, err := e.svc.SelfAssign(ctx, vol, r.ID)
	if err != nil {
		t.Fatalf("SelfAssign: %v", err)
	}

	res, err := e.svc.CompleteByVolunteer(ctx, vol, a.ID, r.ID)
	if err != nil {
		t.Fatalf("CompleteByVolunteer: %v", err)
	}
	if res.Status != models.RequestClosed || res.AlreadyClosed {
		t.Errorf("complete result: got %+v", res)
	}
	if res.AssignmentID == nil || *res.AssignmentID != a.ID {
		t.Errorf("assignment id: got %v, want %s", res.AssignmentID, a.ID.Hex())
	}
	gotA, _ := e.store.GetAssignment(ctx, a.ID)
	if !gotA.IsCompleted() || gotA.CompletedAt == nil {
		t.Errorf("assignment: got status %q completed_at %v", gotA.Status, gotA.CompletedAt)
	}
	closed := e.reload(t, r.ID)
	if closed.ClosedBy == nil || closed.ClosedBy.Path != models.ClosedByVolunteer || closed.ClosedBy.ActorID != vol.ID {
		t.Fatalf("closed_by: got %+v", closed.ClosedBy)
	}

	res, err = e.svc.ResolveByOwner(ctx, owner, r.ID)
	if err != nil {
		t.Fatalf("ResolveByOwner: %v", err)
	}
	if !res.AlreadyClosed {
		t.Error("owner resolve should report already closed")
	}
	after := e.reload(t, r.ID)
	if after.Version != closed.Version || *after.ClosedBy != *closed.ClosedBy {
		t.Errorf("owner resolve changed state: version %d -> %d", closed.Version, after.Version)
	}

	n, err := testutil.GatherAndCount(e.reg, "reliefhub_resolutions_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if n != 2 {
		t.Errorf("resolution series: got %d, want 2", n)
	}
	if v := e.counter(t, "reliefhub_resolutions_total", "path", "owner", "outcome", "noop"); v != 1 {
		t.Errorf("owner noop: got %v, want 1", v)
	}
}

func TestResolveByOwner_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := requester()
	r := e.create(t, owner, 1)

	first, err := e.svc.ResolveByOwner(ctx, owner, r.ID)
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if first.AlreadyClosed || first.ClosedBy == nil || first.ClosedBy.Path != models.ClosedByOwner {
		t.Errorf("first result: got %+v", first)
	}
	snap := e.reload(t, r.ID)

	second, err := e.svc.ResolveByOwner(ctx, owner, r.ID)
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !second.AlreadyClosed {
		t.Error("second resolve should be a no-op")
	}
	if got := e.reload(t, r.ID); got.Version != snap.Version {
		t.Errorf("version: got %d, want %d", got.Version, snap.Version)
	}
}

func TestResolveByOwner_DoesNotTouchAssignments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := requester()
	vol := volunteer()
	r := e.create(t, owner, 2)
	a, err := e.svc.SelfAssign(ctx, vol, r.ID)
	if err != nil {
		t.Fatalf("SelfAssign: %v", err)
	}

	if _, err := e.svc.ResolveByOwner(ctx, owner, r.ID); err != nil {
		t.Fatalf("ResolveByOwner: %v", err)
	}
	got, _ := e.store.GetAssignment(ctx, a.ID)
	if got.Status != models.AssignmentInProgress {
		t.Errorf("assignment status: got %q, want %q", got.Status, models.AssignmentInProgress)
	}

	// The volunteer can still complete their side; the request stays as the owner closed it.
	res, err := e.svc.CompleteByVolunteer(ctx, vol, a.ID, r.ID)
	if err != nil {
		t.Fatalf("CompleteByVolunteer: %v", err)
	}
	if !res.AlreadyClosed || res.ClosedBy.Path != models.ClosedByOwner {
		t.Errorf("complete after close: got %+v", res)
	}
	got, _ = e.store.GetAssignment(ctx, a.ID)
	if !got.IsCompleted() {
		t.Errorf("assignment status: got %q, want completed", got.Status)
	}

	// And a second completion writes nothing.
	v := got.Version
	if _, err := e.svc.CompleteByVolunteer(ctx, vol, a.ID, r.ID); err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if got, _ := e.store.GetAssignment(ctx, a.ID); got.Version != v {
		t.Errorf("assignment version: got %d, want %d", got.Version, v)
	}
}

func TestResolveByOwner_Authorization(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	owner := requester()
	r := e.create(t, owner, 1)

	org := primitive.NewObjectID()
	e.store.AddOrganization(org, "Harbor Relief")
	admin := orgAdmin(org)
	need, err := e.svc.CreateOrganizationNeed(ctx, admin, org, fulfillment.RequestInput{Type: "shelter", Location: "gym"})
	if err != nil {
		t.Fatalf("CreateOrganizationNeed: %v", err)
	}
	coAdmin := orgAdmin(org)

	tests := []struct {
		name     string
		actor    *authz.Actor
		id       primitive.ObjectID
		wantKind apperr.Kind
	}{
		{"no actor", nil, r.ID, apperr.Unauthenticated},
		{"volunteer", volunteer(), r.ID, apperr.Forbidden},
		{"other requester", requester(), r.ID, apperr.Forbidden},
		{"admin of other org", orgAdmin(primitive.NewObjectID()), need.ID, apperr.Forbidden},
		{"admin cannot close requester scope", coAdmin, r.ID, apperr.Forbidden},
		{"missing request", owner, primitive.NewObjectID(), apperr.NotFound},
		{"co-admin of the org", coAdmin, need.ID, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.ResolveByOwner(ctx, tt.actor, tt.id)
			if got := apperr.KindOf(err); got != tt.wantKind {
				t.Errorf("kind: got %q, want %q (err=%v)", got, tt.wantKind, err)
			}
		})
	}
	if got := e.reload(t, r.ID); got.IsClosed() {
		t.Error("rejected resolves closed the request")
	}
}

func TestCompleteByVolunteer_Rejections(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	vol := volunteer()
	r := e.create(t, requester(), 2)
	other := e.create(t, requester(), 2)
	a, err := e.svc.SelfAssign(ctx, vol, r.ID)
	if err != nil {
		t.Fatalf("SelfAssign: %v", err)
	}

	tests := []struct {
		name       string
		actor      *authz.Actor
		assignment primitive.ObjectID
		request    primitive.ObjectID
		wantKind   apperr.Kind
	}{
		{"no actor", nil, a.ID, r.ID, apperr.Unauthenticated},
		{"requester", requester(), a.ID, r.ID, apperr.Forbidden},
		{"missing assignment", vol, primitive.NewObjectID(), r.ID, apperr.NotFound},
		{"someone else's assignment", volunteer(), a.ID, r.ID, apperr.Forbidden},
		{"wrong request", vol, a.ID, other.ID, apperr.Forbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.CompleteByVolunteer(ctx, tt.actor, tt.assignment, tt.request)
			if got := apperr.KindOf(err); got != tt.wantKind {
				t.Errorf("kind: got %q, want %q (err=%v)", got, tt.wantKind, err)
			}
		})
	}
	if got := e.reload(t, r.ID); got.IsClosed() {
		t.Error("rejected completions closed the request")
	}
}

// Owner and volunteer race; exactly one of them closes the request.
func TestResolutionPathsRace(t *testing.T) {
	for range 20 {
		e := newEnv(t)
		ctx := context.Background()
		owner := requester()
		vol := volunteer()
		r := e.create(t, owner, 1)
		a, err := e.svc.SelfAssign(ctx, vol, r.ID)
		if err != nil {
			t.Fatalf("SelfAssign: %v", err)
		}

		var ownerRes, volRes fulfillment.Resolution
		var g errgroup.Group
		g.Go(func() (err error) {
			ownerRes, err = e.svc.ResolveByOwner(ctx, owner, r.ID)
			return err
		})
		g.Go(func() (err error) {
			volRes, err = e.svc.CompleteByVolunteer(ctx, vol, a.ID, r.ID)
			return err
		})
		if err := g.Wait(); err != nil {
			t.Fatalf("race: %v", err)
		}

		if ownerRes.AlreadyClosed == volRes.AlreadyClosed {
			t.Fatalf("exactly one path should close: owner=%v volunteer=%v", ownerRes.AlreadyClosed, volRes.AlreadyClosed)
		}
		got := e.reload(t, r.ID)
		wantPath := models.ClosedByOwner
		if ownerRes.AlreadyClosed {
			wantPath = models.ClosedByVolunteer
		}
		if got.ClosedBy.Path != wantPath {
			t.Errorf("closed_by path: got %q, want %q", got.ClosedBy.Path, wantPath)
		}
		if got.VolunteersAssigned != 1 {
			t.Errorf("assigned: got %d, want 1", got.VolunteersAssigned)
		}
		ga, _ := e.store.GetAssignment(ctx, a.ID)
		if !ga.IsCompleted() {
			t.Errorf("assignment: got %q, want completed", ga.Status)
		}
	}
}
