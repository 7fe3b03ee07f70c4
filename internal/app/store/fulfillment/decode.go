package fulfillmentstore

import (
	"time"

	"github.com/dalemusser/reliefhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// legacyOrgField is the name older writers used for an organization scope.
const legacyOrgField = "organization_id"

// decodeRequest reads a help_requests document field by field so that one bad
// field does not make the whole record unreadable. It reports false only when
// the document has no usable _id.
func decodeRequest(raw bson.Raw) (models.HelpRequest, bool) {
	id, ok := objectID(raw.Lookup("_id"))
	if !ok {
		return models.HelpRequest{}, false
	}
	r := models.HelpRequest{
		ID:                 id,
		Type:               str(raw.Lookup("type")),
		Description:        str(raw.Lookup("description")),
		Location:           str(raw.Lookup("location")),
		Status:             models.RequestStatus(str(raw.Lookup("status"))),
		ScopeKind:          models.ScopeKind(str(raw.Lookup("scope_kind"))),
		VolunteersNeeded:   int(num(raw.Lookup("volunteers_needed"))),
		VolunteersAssigned: int(num(raw.Lookup("volunteers_assigned"))),
		CreatedAt:          when(raw.Lookup("created_at")),
		UpdatedAt:          when(raw.Lookup("updated_at")),
		Version:            num(raw.Lookup("version")),
	}
	r.OwnerID, _ = objectID(raw.Lookup("owner_id"))
	r.ScopeID, _ = objectID(raw.Lookup("scope_id"))
	if r.ScopeID.IsZero() {
		if org, ok := objectID(raw.Lookup(legacyOrgField)); ok {
			r.ScopeID = org
			if r.ScopeKind == "" {
				r.ScopeKind = models.ScopeOrganization
			}
		}
	}
	if t := when(raw.Lookup("closed_at")); !t.IsZero() {
		r.ClosedAt = &t
	}
	if doc, ok := raw.Lookup("closed_by").DocumentOK(); ok {
		by := models.ClosedBy{Path: models.ClosePath(str(doc.Lookup("path")))}
		by.ActorID, _ = objectID(doc.Lookup("actor_id"))
		r.ClosedBy = &by
	}
	return r, true
}

// objectID accepts a native ObjectID or its hex string form.
func objectID(v bson.RawValue) (primitive.ObjectID, bool) {
	switch v.Type {
	case bson.TypeObjectID:
		return v.ObjectID(), true
	case bson.TypeString:
		id, err := primitive.ObjectIDFromHex(v.StringValue())
		return id, err == nil
	}
	return primitive.NilObjectID, false
}

func str(v bson.RawValue) string {
	s, _ := v.StringValueOK()
	return s
}

func num(v bson.RawValue) int64 {
	switch v.Type {
	case bson.TypeInt32:
		return int64(v.Int32())
	case bson.TypeInt64:
		return v.Int64()
	case bson.TypeDouble:
		return int64(v.Double())
	}
	return 0
}

func when(v bson.RawValue) time.Time {
	if v.Type != bson.TypeDateTime {
		return time.Time{}
	}
	return v.Time().UTC()
}
