package collection

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Guard returns a copy of filter that only matches live documents. Any clause
// the caller put on deleted_at is replaced, so deleted documents can never be
// selected. Guard(Guard(f)) equals Guard(f).
func Guard(filter bson.D) bson.D {
	out := make(bson.D, 0, len(filter)+1)
	for _, e := range filter {
		if e.Key != FieldDeletedAt {
			out = append(out, e)
		}
	}
	return append(out, bson.E{Key: FieldDeletedAt, Value: bson.D{{Key: "$exists", Value: false}}})
}

// ByID is the guarded predicate for a single live document.
func ByID(id primitive.ObjectID) bson.D {
	return Guard(bson.D{{Key: FieldID, Value: id}})
}
