package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/fulfillment"
	"github.com/dalemusser/reliefhub/internal/app/store/memstore"
	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func seed(t *testing.T, s *memstore.Store, created time.Time) models.HelpRequest {
	t.Helper()
	r := models.HelpRequest{
		ID:               primitive.NewObjectID(),
		OwnerID:          primitive.NewObjectID(),
		Status:           models.RequestOpen,
		VolunteersNeeded: 2,
		CreatedAt:        created,
	}
	if err := s.InsertRequest(context.Background(), r); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}
	got, err := s.GetRequest(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	return got
}

func TestCommit_VersionGuard(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	r := seed(t, s, time.Now())

	next := r
	next.VolunteersAssigned = 1
	if err := s.Commit(ctx, fulfillment.Intent{Request: &next}); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	// Same stale snapshot again.
	stale := r
	stale.VolunteersAssigned = 1
	err := s.Commit(ctx, fulfillment.Intent{Request: &stale})
	if !apperr.Is(err, apperr.Aborted) {
		t.Errorf("stale commit: got %v, want aborted", err)
	}

	got, _ := s.GetRequest(ctx, r.ID)
	if got.Version != r.Version+1 {
		t.Errorf("version: got %d, want %d", got.Version, r.Version+1)
	}
}

func TestCommit_CancelledContextIsConflict(t *testing.T) {
	s := memstore.New()
	r := seed(t, s, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	next := r
	next.VolunteersAssigned = 1
	err := s.Commit(ctx, fulfillment.Intent{Request: &next})
	if got := apperr.KindOf(err); got != apperr.Conflict {
		t.Errorf("kind: got %q, want %q", got, apperr.Conflict)
	}

	got, _ := s.GetRequest(context.Background(), r.ID)
	if got.Version != r.Version {
		t.Errorf("version: got %d, want %d (nothing written)", got.Version, r.Version)
	}
}

func TestCommit_DuplicateClaimAborts(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	r := seed(t, s, time.Now())
	vol := primitive.NewObjectID()

	first := models.Assignment{ID: primitive.NewObjectID(), VolunteerID: vol, SourceRequestID: r.ID}
	if err := s.Commit(ctx, fulfillment.Intent{NewAssignment: &first}); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	second := models.Assignment{ID: primitive.NewObjectID(), VolunteerID: vol, SourceRequestID: r.ID}
	if err := s.Commit(ctx, fulfillment.Intent{NewAssignment: &second}); !apperr.Is(err, apperr.Aborted) {
		t.Errorf("second claim: got %v, want aborted", err)
	}

	a, ok, err := s.FindClaim(ctx, vol, r.ID)
	if err != nil || !ok {
		t.Fatalf("FindClaim: ok=%v err=%v", ok, err)
	}
	if a.ID != first.ID {
		t.Errorf("claim id: got %s, want %s", a.ID.Hex(), first.ID.Hex())
	}
}

func TestCommit_NothingWrittenWhenAnyGuardFails(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	r := seed(t, s, time.Now())

	stale := r
	stale.Version = 99
	stale.VolunteersAssigned = 1
	a := models.Assignment{ID: primitive.NewObjectID(), VolunteerID: primitive.NewObjectID(), SourceRequestID: r.ID}
	if err := s.Commit(ctx, fulfillment.Intent{Request: &stale, NewAssignment: &a}); !apperr.Is(err, apperr.Aborted) {
		t.Fatalf("commit: got %v, want aborted", err)
	}
	if _, err := s.GetAssignment(ctx, a.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("assignment after failed commit: got %v, want not found", err)
	}
}

func TestOpenRequests_OrderAndRestart(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := seed(t, s, base.Add(time.Hour))
	first := seed(t, s, base)

	collect := func() []primitive.ObjectID {
		var ids []primitive.ObjectID
		for r, err := range s.OpenRequests(ctx) {
			if err != nil {
				t.Fatalf("OpenRequests: %v", err)
			}
			ids = append(ids, r.ID)
		}
		return ids
	}

	got := collect()
	if len(got) != 2 || got[0] != first.ID || got[1] != second.ID {
		t.Fatalf("order: got %v, want [%s %s]", got, first.ID.Hex(), second.ID.Hex())
	}

	third := seed(t, s, base.Add(2*time.Hour))
	got = collect()
	if len(got) != 3 || got[2] != third.ID {
		t.Errorf("restart should see new request: got %v", got)
	}
}

func TestOrganizationName(t *testing.T) {
	s := memstore.New()
	id := primitive.NewObjectID()
	s.AddOrganization(id, "Harbor Relief")

	n, err := s.OrganizationName(context.Background(), id)
	if err != nil || n != "Harbor Relief" {
		t.Errorf("known org: got %q, %v", n, err)
	}
	if _, err := s.OrganizationName(context.Background(), primitive.NewObjectID()); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("unknown org: got %v, want not found", err)
	}
}
