package collection

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Lifecycle fields injected by the stamper. Callers can never write them directly.
const (
	FieldID        = "_id"
	FieldCreatedAt = "created_at"
	FieldCreatedBy = "created_by"
	FieldUpdatedAt = "updated_at"
	FieldUpdatedBy = "updated_by"
	FieldDeletedAt = "deleted_at"
	FieldDeletedBy = "deleted_by"
)

// SystemPrincipal attributes writes made without an authenticated caller.
const SystemPrincipal = "system"

var reservedFields = map[string]struct{}{
	FieldID:        {},
	FieldCreatedAt: {},
	FieldCreatedBy: {},
	FieldUpdatedAt: {},
	FieldUpdatedBy: {},
	FieldDeletedAt: {},
	FieldDeletedBy: {},
}

// IsReserved reports whether key is owned by the system rather than the caller.
// A dotted path such as "created_at.x" is judged by its first segment.
func IsReserved(key string) bool {
	root, _, _ := strings.Cut(key, ".")
	_, ok := reservedFields[root]
	return ok
}

// Principal is the identity a write is attributed to.
type Principal struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Name returns the attribution name, falling back to SystemPrincipal.
func (p *Principal) Name() string {
	if p == nil || p.Username == "" {
		return SystemPrincipal
	}
	return p.Username
}

// Document is a stored document as returned to callers. Nested documents are
// plain maps, arrays are []any and dates are time.Time in UTC.
type Document map[string]any

// NewDocument deep-copies a decoded store document into a Document.
func NewDocument(raw map[string]any) Document {
	out := make(Document, len(raw))
	for k, v := range raw {
		out[k] = normalize(v)
	}
	return out
}

// ID returns the store-assigned identifier.
func (d Document) ID() (primitive.ObjectID, bool) {
	id, ok := d[FieldID].(primitive.ObjectID)
	return id, ok
}

// Deleted reports whether the document carries a deletion stamp.
func (d Document) Deleted() bool {
	_, ok := d[FieldDeletedAt]
	return ok
}

func normalize(v any) any {
	switch t := v.(type) {
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = normalize(e.Value)
		}
		return m
	case bson.M:
		return map[string]any(NewDocument(t))
	case Document:
		return map[string]any(NewDocument(t))
	case map[string]any:
		return map[string]any(NewDocument(t))
	case bson.A:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case time.Time:
		return t.UTC()
	default:
		return v
	}
}
