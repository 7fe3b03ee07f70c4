// internal/app/store/announcements/announcementstore.go
package announcementstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const maxTitleLen = 200

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("announcements")}
}

// Input carries the editable fields of an announcement.
type Input struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Status string `json:"status"`
}

// clean sanitizes in and checks the required fields.
func clean(in Input) (Input, error) {
	in.Title = htmlsanitize.PlainText(in.Title)
	in.Body = htmlsanitize.Sanitize(strings.TrimSpace(in.Body))
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if in.Status == "" {
		in.Status = models.AnnouncementDraft
	}
	switch {
	case in.Title == "":
		return in, apperr.Validationf("title is required")
	case len(in.Title) > maxTitleLen:
		return in, apperr.Validationf("title must be at most %d characters", maxTitleLen)
	case in.Body == "":
		return in, apperr.Validationf("body is required")
	case in.Status != models.AnnouncementDraft && in.Status != models.AnnouncementPublished:
		return in, apperr.Validationf(`status must be "draft"|"published"`)
	}
	return in, nil
}

// Create stores a new announcement for orgID.
func (s *Store) Create(ctx context.Context, orgID, createdBy primitive.ObjectID, in Input) (models.Announcement, error) {
	in, err := clean(in)
	if err != nil {
		return models.Announcement{}, err
	}
	now := time.Now().UTC()
	a := models.Announcement{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		Title:          in.Title,
		Body:           in.Body,
		Status:         in.Status,
		CreatedBy:      createdBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Announcement{}, apperr.Wrap(apperr.Internal, err, "insert announcement")
	}
	return a, nil
}

// GetByID loads one announcement of orgID. An announcement filed under another
// organization is reported as not found.
func (s *Store) GetByID(ctx context.Context, orgID, id primitive.ObjectID) (models.Announcement, error) {
	var a models.Announcement
	err := s.c.FindOne(ctx, bson.M{"_id": id, "organization_id": orgID}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Announcement{}, apperr.NotFoundf("announcement not found")
	}
	if err != nil {
		return models.Announcement{}, apperr.Wrap(apperr.Internal, err, "load announcement")
	}
	return a, nil
}

// ListByOrg returns orgID's announcements, newest first.
func (s *Store) ListByOrg(ctx context.Context, orgID primitive.ObjectID, publishedOnly bool) ([]models.Announcement, error) {
	filter := bson.M{"organization_id": orgID}
	if publishedOnly {
		filter["status"] = models.AnnouncementPublished
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "list announcements")
	}
	defer cur.Close(ctx)

	out := make([]models.Announcement, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "decode announcements")
	}
	return out, nil
}

// Update replaces the editable fields and returns the stored record.
func (s *Store) Update(ctx context.Context, orgID, id primitive.ObjectID, in Input) (models.Announcement, error) {
	in, err := clean(in)
	if err != nil {
		return models.Announcement{}, err
	}
	var a models.Announcement
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "organization_id": orgID},
		bson.M{"$set": bson.M{
			"title":      in.Title,
			"body":       in.Body,
			"status":     in.Status,
			"updated_at": time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Announcement{}, apperr.NotFoundf("announcement not found")
	}
	if err != nil {
		return models.Announcement{}, apperr.Wrap(apperr.Internal, err, "update announcement")
	}
	return a, nil
}

// Delete removes one announcement of orgID.
func (s *Store) Delete(ctx context.Context, orgID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "organization_id": orgID})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "delete announcement")
	}
	if res.DeletedCount == 0 {
		return apperr.NotFoundf("announcement not found")
	}
	return nil
}
