package announcementstore_test

import (
	"strings"
	"testing"

	announcementstore "github.com/dalemusser/reliefhub/internal/app/store/announcements"
	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"github.com/dalemusser/reliefhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_CreateSanitizes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := announcementstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org, author := primitive.NewObjectID(), primitive.NewObjectID()
	a, err := store.Create(ctx, org, author, announcementstore.Input{
		Title: " <b>Shelter</b> open ",
		Body:  `<p>Cots available</p><script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if a.Title != "Shelter open" {
		t.Errorf("Title: got %q, want %q", a.Title, "Shelter open")
	}
	if strings.Contains(a.Body, "script") {
		t.Errorf("Body: got %q, want script stripped", a.Body)
	}
	if a.Status != models.AnnouncementDraft {
		t.Errorf("Status: got %q, want %q", a.Status, models.AnnouncementDraft)
	}
}

func TestStore_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := announcementstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	tests := []struct {
		name string
		in   announcementstore.Input
	}{
		{"no title", announcementstore.Input{Body: "x"}},
		{"no body", announcementstore.Input{Title: "x"}},
		{"only markup body", announcementstore.Input{Title: "x", Body: "<script>x</script>"}},
		{"bad status", announcementstore.Input{Title: "x", Body: "y", Status: "archived"}},
		{"long title", announcementstore.Input{Title: strings.Repeat("t", 201), Body: "y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, primitive.NewObjectID(), primitive.NewObjectID(), tt.in)
			if !apperr.Is(err, apperr.Validation) {
				t.Errorf("Create: got %v, want Validation", err)
			}
		})
	}
}

func TestStore_ListUpdateDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := announcementstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	org, other, author := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	draft, err := store.Create(ctx, org, author, announcementstore.Input{Title: "Draft", Body: "d"})
	if err != nil {
		t.Fatalf("Create draft: %v", err)
	}
	if _, err := store.Create(ctx, org, author, announcementstore.Input{Title: "Live", Body: "l", Status: "published"}); err != nil {
		t.Fatalf("Create published: %v", err)
	}
	if _, err := store.Create(ctx, other, author, announcementstore.Input{Title: "Elsewhere", Body: "e", Status: "published"}); err != nil {
		t.Fatalf("Create other: %v", err)
	}

	all, err := store.ListByOrg(ctx, org, false)
	if err != nil {
		t.Fatalf("ListByOrg: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListByOrg all: got %d, want 2", len(all))
	}
	pub, _ := store.ListByOrg(ctx, org, true)
	if len(pub) != 1 || pub[0].Title != "Live" {
		t.Errorf("ListByOrg published: got %+v, want [Live]", pub)
	}

	// Other organizations cannot reach the announcement.
	if _, err := store.Update(ctx, other, draft.ID, announcementstore.Input{Title: "x", Body: "y"}); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("Update cross-org: got %v, want NotFound", err)
	}

	up, err := store.Update(ctx, org, draft.ID, announcementstore.Input{Title: "Now live", Body: "d2", Status: "published"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if up.Status != models.AnnouncementPublished || up.Title != "Now live" {
		t.Errorf("Update: got %+v", up)
	}

	if err := store.Delete(ctx, org, draft.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, org, draft.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("Delete twice: got %v, want NotFound", err)
	}
	if _, err := store.GetByID(ctx, org, draft.ID); !apperr.Is(err, apperr.NotFound) {
		t.Errorf("GetByID after delete: got %v, want NotFound", err)
	}
}
