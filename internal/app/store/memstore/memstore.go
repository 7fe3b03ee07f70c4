// Package memstore is an in-memory fulfillment store. Commits are serialized
// under one lock and guarded by record versions, so it loses races the same
// way the Mongo store does. Used by tests and by local runs without Mongo.
package memstore

import (
	"bytes"
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/dalemusser/reliefhub/internal/app/fulfillment"
	"github.com/dalemusser/reliefhub/internal/app/system/apperr"
	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type claimKey struct {
	volunteer, request primitive.ObjectID
}

// Store implements fulfillment.Store and fulfillment.ScopeResolver.
type Store struct {
	mu          sync.RWMutex
	requests    map[primitive.ObjectID]models.HelpRequest
	assignments map[primitive.ObjectID]models.Assignment
	claims      map[claimKey]primitive.ObjectID
	orgs        map[primitive.ObjectID]string

	// BeforeCommit, when set, runs before every commit takes the lock.
	// Tests use it to interleave writers.
	BeforeCommit func(fulfillment.Intent)
}

var (
	_ fulfillment.Store         = (*Store)(nil)
	_ fulfillment.ScopeResolver = (*Store)(nil)
)

func New() *Store {
	return &Store{
		requests:    map[primitive.ObjectID]models.HelpRequest{},
		assignments: map[primitive.ObjectID]models.Assignment{},
		claims:      map[claimKey]primitive.ObjectID{},
		orgs:        map[primitive.ObjectID]string{},
	}
}

// AddOrganization registers an organization name for scope resolution.
func (s *Store) AddOrganization(id primitive.ObjectID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[id] = name
}

// PutRequest stores r as-is, bypassing validation. Tests use it to seed
// malformed records.
func (s *Store) PutRequest(r models.HelpRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[r.ID] = r
}

func (s *Store) OrganizationName(ctx context.Context, id primitive.ObjectID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.orgs[id]
	if !ok {
		return "", apperr.NotFoundf("organization not found")
	}
	return n, nil
}

func (s *Store) InsertRequest(ctx context.Context, req models.HelpRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return apperr.Conflictf("help request already exists")
	}
	req.Version = 1
	s.requests[req.ID] = req
	return nil
}

func (s *Store) GetRequest(ctx context.Context, id primitive.ObjectID) (models.HelpRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return models.HelpRequest{}, apperr.NotFoundf("help request not found")
	}
	return r, nil
}

func (s *Store) GetAssignment(ctx context.Context, id primitive.ObjectID) (models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return models.Assignment{}, apperr.NotFoundf("assignment not found")
	}
	return a, nil
}

func (s *Store) FindClaim(ctx context.Context, volunteerID, requestID primitive.ObjectID) (models.Assignment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.claims[claimKey{volunteerID, requestID}]
	if !ok {
		return models.Assignment{}, false, nil
	}
	return s.assignments[id], true, nil
}

// Commit checks every guard before writing anything.
func (s *Store) Commit(ctx context.Context, in fulfillment.Intent) error {
	if s.BeforeCommit != nil {
		s.BeforeCommit(in)
	}
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.Conflict, err, "commit cancelled")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if in.Request != nil {
		cur, ok := s.requests[in.Request.ID]
		if !ok {
			return apperr.NotFoundf("help request not found")
		}
		if cur.Version != in.Request.Version {
			return apperr.Abortedf("help request changed concurrently")
		}
	}
	if in.Assignment != nil {
		cur, ok := s.assignments[in.Assignment.ID]
		if !ok {
			return apperr.NotFoundf("assignment not found")
		}
		if cur.Version != in.Assignment.Version {
			return apperr.Abortedf("assignment changed concurrently")
		}
	}
	if a := in.NewAssignment; a != nil {
		if _, dup := s.claims[claimKey{a.VolunteerID, a.SourceRequestID}]; dup {
			return apperr.Abortedf("claim inserted concurrently")
		}
		if _, dup := s.assignments[a.ID]; dup {
			return apperr.Abortedf("assignment id already used")
		}
	}

	if in.Request != nil {
		r := *in.Request
		r.Version++
		s.requests[r.ID] = r
	}
	if in.Assignment != nil {
		a := *in.Assignment
		a.Version++
		s.assignments[a.ID] = a
	}
	if in.NewAssignment != nil {
		a := *in.NewAssignment
		a.Version = 1
		s.assignments[a.ID] = a
		s.claims[claimKey{a.VolunteerID, a.SourceRequestID}] = a.ID
	}
	return nil
}

// OpenRequests snapshots the open requests when ranging starts.
func (s *Store) OpenRequests(ctx context.Context) iter.Seq2[models.HelpRequest, error] {
	return func(yield func(models.HelpRequest, error) bool) {
		s.mu.RLock()
		open := make([]models.HelpRequest, 0, len(s.requests))
		for _, r := range s.requests {
			if r.Status == models.RequestOpen {
				open = append(open, r)
			}
		}
		s.mu.RUnlock()
		sortRequests(open, false)

		for _, r := range open {
			if err := ctx.Err(); err != nil {
				yield(models.HelpRequest{}, err)
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func (s *Store) ListRequestsByOwner(ctx context.Context, ownerID primitive.ObjectID) ([]models.HelpRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.HelpRequest
	for _, r := range s.requests {
		if r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	sortRequests(out, true)
	return out, nil
}

func (s *Store) ListAssignmentsByVolunteer(ctx context.Context, volunteerID primitive.ObjectID) ([]models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Assignment
	for _, a := range s.assignments {
		if a.VolunteerID == volunteerID {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b models.Assignment) int {
		if c := b.AssignedAt.Compare(a.AssignedAt); c != 0 {
			return c
		}
		return bytes.Compare(b.ID[:], a.ID[:])
	})
	return out, nil
}

// sortRequests orders by creation time, ties broken by id.
func sortRequests(rs []models.HelpRequest, newestFirst bool) {
	slices.SortFunc(rs, func(a, b models.HelpRequest) int {
		c := a.CreatedAt.Compare(b.CreatedAt)
		if c == 0 {
			c = bytes.Compare(a.ID[:], b.ID[:])
		}
		if newestFirst {
			return -c
		}
		return c
	})
}
