package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/normalize"
	"github.com/dalemusser/reliefhub/internal/app/system/timeouts"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Fetcher implements auth.UserFetcher to load fresh roles on each request.
type Fetcher struct {
	users *mongo.Collection
	log   *zap.Logger
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database, log *zap.Logger) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{users: db.Collection("users"), log: log}
}

// FetchActor returns nil, nil when the user does not exist or is disabled.
func (f *Fetcher) FetchActor(ctx context.Context, id primitive.ObjectID) (*authz.Actor, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":             1,
		"full_name":       1,
		"roles":           1,
		"status":          1,
		"organization_id": 1,
	})
	err := f.users.FindOne(ctx, bson.M{"_id": id}, proj).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "load actor")
	}
	if normalize.Status(u.Status) == StatusDisabled {
		return nil, nil
	}

	roles, unknown := authz.ParseRoleSet(u.Roles)
	if len(unknown) > 0 {
		f.log.Warn("user has unknown roles",
			zap.String("user_id", id.Hex()),
			zap.Strings("roles", unknown))
	}
	a := &authz.Actor{ID: u.ID, Name: u.FullName, Roles: roles}
	if u.OrganizationID != nil {
		a.OrganizationID = *u.OrganizationID
	}
	return a, nil
}
