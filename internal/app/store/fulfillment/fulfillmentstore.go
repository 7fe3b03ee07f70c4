// internal/app/store/fulfillment/fulfillmentstore.go
package fulfillmentstore

import (
	"context"
	"errors"
	"iter"

	"github.com/dalemusser/reliefhub/internal/app/fulfillment"
	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/app/system/txn"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names. Every help request, whatever its scope, lives in
// help_requests; the scope is the (scope_kind, scope_id) pair.
const (
	RequestsCollection    = "help_requests"
	AssignmentsCollection = "assignments"
)

// errStale marks a guarded write that matched nothing.
var errStale = errors.New("record changed since it was read")

// Store implements fulfillment.Store on MongoDB.
type Store struct {
	db          *mongo.Database
	requests    *mongo.Collection
	assignments *mongo.Collection
	log         *zap.Logger
}

var _ fulfillment.Store = (*Store)(nil)

func New(db *mongo.Database, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		db:          db,
		requests:    db.Collection(RequestsCollection),
		assignments: db.Collection(AssignmentsCollection),
		log:         log,
	}
}

func (s *Store) InsertRequest(ctx context.Context, req models.HelpRequest) error {
	req.Version = 1
	if _, err := s.requests.InsertOne(ctx, req); err != nil {
		if wafflemongo.IsDup(err) {
			return apperr.Conflictf("help request already exists")
		}
		return apperr.Wrap(apperr.Internal, err, "insert help request")
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id primitive.ObjectID) (models.HelpRequest, error) {
	raw, err := s.requests.FindOne(ctx, bson.M{"_id": id}).Raw()
	if err != nil {
		return models.HelpRequest{}, classify(err, "help request")
	}
	r, ok := decodeRequest(raw)
	if !ok {
		return models.HelpRequest{}, apperr.New(apperr.Internal, "help request %s is malformed", id.Hex())
	}
	return r, nil
}

func (s *Store) GetAssignment(ctx context.Context, id primitive.ObjectID) (models.Assignment, error) {
	var a models.Assignment
	if err := s.assignments.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return models.Assignment{}, classify(err, "assignment")
	}
	return a, nil
}

func (s *Store) FindClaim(ctx context.Context, volunteerID, requestID primitive.ObjectID) (models.Assignment, bool, error) {
	var a models.Assignment
	err := s.assignments.FindOne(ctx, bson.M{
		"volunteer_id":      volunteerID,
		"source_request_id": requestID,
	}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return models.Assignment{}, false, nil
	}
	if err != nil {
		return models.Assignment{}, false, classify(err, "assignment")
	}
	return a, true, nil
}

// Commit writes the intent in one transaction. Each update is filtered on the
// version that was read, so a concurrent writer makes it match nothing and the
// whole unit aborts.
//
// Without transaction support the writes run in order: the new claim first
// (guarded by the unique claim index), then the request, then the existing
// assignment. A claim whose request update then fails is removed again.
func (s *Store) Commit(ctx context.Context, in fulfillment.Intent) error {
	if in.Empty() {
		return nil
	}
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if a := in.NewAssignment; a != nil {
			doc := *a
			doc.Version = 1
			if _, err := s.assignments.InsertOne(ctx, doc); err != nil {
				return err
			}
		}
		if r := in.Request; r != nil {
			if err := s.guardedUpdate(ctx, s.requests, r.ID, r.Version, requestSet(*r)); err != nil {
				if a := in.NewAssignment; a != nil {
					if _, derr := s.assignments.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": a.ID}); derr != nil {
						s.log.Warn("could not remove claim after failed request update",
							zap.String("assignment_id", a.ID.Hex()),
							zap.Error(derr))
					}
				}
				return err
			}
		}
		if a := in.Assignment; a != nil {
			if err := s.guardedUpdate(ctx, s.assignments, a.ID, a.Version, assignmentSet(*a)); err != nil {
				return err
			}
		}
		return nil
	})
	return classify(err, "record")
}

func (s *Store) guardedUpdate(ctx context.Context, c *mongo.Collection, id primitive.ObjectID, version int64, set bson.M) error {
	res, err := c.UpdateOne(ctx,
		bson.M{"_id": id, "version": versionMatch(version)},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return errStale
	}
	return nil
}

// versionMatch treats a missing version field as version 0.
func versionMatch(v int64) any {
	if v == 0 {
		return bson.M{"$in": bson.A{int64(0), int32(0), nil}}
	}
	return v
}

func requestSet(r models.HelpRequest) bson.M {
	set := bson.M{
		"status":              r.Status,
		"volunteers_assigned": r.VolunteersAssigned,
		"updated_at":          r.UpdatedAt,
	}
	if r.ClosedAt != nil {
		set["closed_at"] = *r.ClosedAt
	}
	if r.ClosedBy != nil {
		set["closed_by"] = *r.ClosedBy
	}
	return set
}

func assignmentSet(a models.Assignment) bson.M {
	set := bson.M{"status": a.Status}
	if a.CompletedAt != nil {
		set["completed_at"] = *a.CompletedAt
	}
	return set
}

// OpenRequests streams open requests oldest first. Each range runs a new
// query. Documents without a usable _id are logged and skipped.
func (s *Store) OpenRequests(ctx context.Context) iter.Seq2[models.HelpRequest, error] {
	return func(yield func(models.HelpRequest, error) bool) {
		cur, err := s.requests.Find(ctx,
			bson.M{"status": models.RequestOpen},
			options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}),
		)
		if err != nil {
			yield(models.HelpRequest{}, classify(err, "help request"))
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			r, ok := decodeRequest(cur.Current)
			if !ok {
				s.log.Warn("skipping malformed help request", zap.String("raw", cur.Current.String()))
				continue
			}
			if !yield(r, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(models.HelpRequest{}, classify(err, "help request"))
		}
	}
}

func (s *Store) ListRequestsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.HelpRequest, error) {
	cur, err := s.requests.Find(ctx,
		bson.M{"owner_id": ownerID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, classify(err, "help request")
	}
	defer cur.Close(ctx)

	var out []models.HelpRequest
	for cur.Next(ctx) {
		if r, ok := decodeRequest(cur.Current); ok {
			out = append(out, r)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, classify(err, "help request")
	}
	return out, nil
}

func (s *Store) ListAssignmentsByVolunteer(ctx context.Context, volunteerID primitive.ObjectID) ([]models.Assignment, error) {
	cur, err := s.assignments.Find(ctx,
		bson.M{"volunteer_id": volunteerID},
		options.Find().SetSort(bson.D{{Key: "assigned_at", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, classify(err, "assignment")
	}
	defer cur.Close(ctx)
	var out []models.Assignment
	if err := cur.All(ctx, &out); err != nil {
		return nil, classify(err, "assignment")
	}
	return out, nil
}

// classify maps driver errors onto the error taxonomy.
func classify(err error, what string) error {
	var ae *apperr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return apperr.NotFoundf("%s not found", what)
	case errors.Is(err, errStale):
		return apperr.Wrap(apperr.Aborted, err, "%s changed concurrently", what)
	case wafflemongo.IsDup(err):
		return apperr.Wrap(apperr.Aborted, err, "claim inserted concurrently")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Wrap(apperr.Conflict, err, "%s operation cancelled or timed out", what)
	case txn.IsTransient(err):
		return apperr.Wrap(apperr.Aborted, err, "transaction aborted")
	default:
		return apperr.Wrap(apperr.Internal, err, "%s store failure", what)
	}
}
