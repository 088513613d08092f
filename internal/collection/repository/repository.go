package repository

import (
	"context"
	"errors"

	"github.com/docgate/docgate/internal/collection"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound         = errors.New("document not found")
	ErrCollectionExists = errors.New("collection already exists")
	// ErrBadQuery marks a filter, sort or projection the store refused to parse.
	ErrBadQuery = errors.New("bad query")
)

// FindOptions carries pass-through pagination, projection and sort. A zero
// Limit means no limit.
type FindOptions struct {
	Projection bson.D
	Sort       bson.D
	Skip       int64
	Limit      int64
}

// Store is the set of document-store primitives the collection service is
// built on. Filters are passed through untouched; callers guard them.
// Every mutating primitive is a single atomic store operation.
type Store interface {
	Ping(ctx context.Context) error
	CollectionNames(ctx context.Context) ([]string, error)
	CollectionExists(ctx context.Context, name string) (bool, error)
	// CreateCollection returns ErrCollectionExists when name is taken.
	CreateCollection(ctx context.Context, name string) error
	InsertOne(ctx context.Context, name string, doc bson.D) (primitive.ObjectID, error)
	// FindOne returns ErrNotFound when nothing matches.
	FindOne(ctx context.Context, name string, filter bson.D) (collection.Document, error)
	Find(ctx context.Context, name string, filter bson.D, opts FindOptions) ([]collection.Document, error)
	// FindOneAndSet applies $set to the first match and returns it post-update,
	// or ErrNotFound.
	FindOneAndSet(ctx context.Context, name string, filter, set bson.D) (collection.Document, error)
	// UpdateOneSet and UpdateManySet return the number of modified documents.
	UpdateOneSet(ctx context.Context, name string, filter, set bson.D) (int64, error)
	UpdateManySet(ctx context.Context, name string, filter, set bson.D) (int64, error)
}
