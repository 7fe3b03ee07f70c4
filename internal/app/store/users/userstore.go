package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/authz"
	"github.com/dalemusser/reliefhub/internal/app/system/normalize"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

var (
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = apperr.Conflictf("a user with this email already exists")
	errNoRoles        = apperr.Validationf("at least one role is required")
	errBadStatus      = apperr.Validationf(`status must be "active"|"disabled"`)
	errOrgNeeded      = apperr.Validationf("organization_admin must have organization_id")
)

func notFoundOr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperr.NotFoundf("user not found")
	}
	return apperr.Wrap(apperr.Internal, err, "user store")
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, notFoundOr(err)
	}
	return u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return models.User{}, notFoundOr(err)
	}
	return u, nil
}

// validRoles parses names and returns them in canonical order.
func validRoles(names []string) ([]string, error) {
	set, unknown := authz.ParseRoleSet(names)
	if len(unknown) > 0 {
		return nil, apperr.Validationf("unknown role %q", unknown[0])
	}
	if len(set) == 0 {
		return nil, errNoRoles
	}
	return set.Strings(), nil
}

// Create inserts a new user after normalizing & validating fields.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Status = normalize.Status(u.Status)
	if u.Status == "" {
		u.Status = StatusActive
	}
	if u.Status != StatusActive && u.Status != StatusDisabled {
		return models.User{}, errBadStatus
	}
	roles, err := validRoles(u.Roles)
	if err != nil {
		return models.User{}, err
	}
	u.Roles = roles
	if hasRole(roles, authz.RoleOrganizationAdmin) && u.OrganizationID == nil {
		return models.User{}, errOrgNeeded
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, apperr.Wrap(apperr.Internal, err, "insert user")
	}
	return u, nil
}

func hasRole(names []string, r authz.Role) bool {
	for _, n := range names {
		if n == string(r) {
			return true
		}
	}
	return false
}

// UpdateRoles replaces a user's role set and returns the updated record.
// orgID, when non-nil, also links the user to that organization.
func (s *Store) UpdateRoles(ctx context.Context, id primitive.ObjectID, names []string, orgID *primitive.ObjectID) (models.User, error) {
	roles, err := validRoles(names)
	if err != nil {
		return models.User{}, err
	}
	cur, err := s.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	if orgID == nil {
		orgID = cur.OrganizationID
	}
	if hasRole(roles, authz.RoleOrganizationAdmin) && orgID == nil {
		return models.User{}, errOrgNeeded
	}

	set := bson.M{"roles": roles, "updated_at": time.Now().UTC()}
	if orgID != nil {
		set["organization_id"] = *orgID
	}
	var u models.User
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		return models.User{}, notFoundOr(err)
	}
	return u, nil
}

// SetOrganization links a user to an organization.
func (s *Store) SetOrganization(ctx context.Context, id, orgID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"organization_id": orgID,
		"updated_at":      time.Now().UTC(),
	}})
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "link user to organization")
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("user not found")
	}
	return nil
}

// AddRole grants role to the user with the given email. It reports whether the
// user exists.
func (s *Store) AddRole(ctx context.Context, email string, role authz.Role) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{
			"$addToSet": bson.M{"roles": string(role)},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, apperr.Wrap(apperr.Internal, err, "grant role")
	}
	return res.MatchedCount > 0, nil
}
