package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/docgate/docgate/internal/collection"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Server error codes this store translates.
const (
	codeBadValue        = 2
	codeFailedToParse   = 9
	codeNamespaceExists = 48
)

// MongoStore implements Store on a MongoDB database. Collections are resolved
// per call, so any collection name can be addressed.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (m *MongoStore) Ping(ctx context.Context) error {
	return m.db.Client().Ping(ctx, readpref.Primary())
}

func (m *MongoStore) CollectionNames(ctx context.Context) ([]string, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

func (m *MongoStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

func (m *MongoStore) CreateCollection(ctx context.Context, name string) error {
	err := m.db.CreateCollection(ctx, name)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists {
		return ErrCollectionExists
	}
	return err
}

func (m *MongoStore) InsertOne(ctx context.Context, name string, doc bson.D) (primitive.ObjectID, error) {
	res, err := m.db.Collection(name).InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id, nil
}

func (m *MongoStore) FindOne(ctx context.Context, name string, filter bson.D) (collection.Document, error) {
	var raw bson.M
	if err := m.db.Collection(name).FindOne(ctx, filter).Decode(&raw); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, translate(err)
	}
	return collection.NewDocument(raw), nil
}

func (m *MongoStore) Find(ctx context.Context, name string, filter bson.D, o FindOptions) ([]collection.Document, error) {
	opts := options.Find().SetSkip(o.Skip)
	if o.Limit > 0 {
		opts.SetLimit(o.Limit)
	}
	if len(o.Projection) > 0 {
		opts.SetProjection(o.Projection)
	}
	if len(o.Sort) > 0 {
		opts.SetSort(o.Sort)
	}
	cur, err := m.db.Collection(name).Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	defer cur.Close(ctx)

	out := []collection.Document{}
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, collection.NewDocument(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (m *MongoStore) FindOneAndSet(ctx context.Context, name string, filter, set bson.D) (collection.Document, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var raw bson.M
	err := m.db.Collection(name).FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: set}}, opts).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, translate(err)
	}
	return collection.NewDocument(raw), nil
}

func (m *MongoStore) UpdateOneSet(ctx context.Context, name string, filter, set bson.D) (int64, error) {
	res, err := m.db.Collection(name).UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return 0, translate(err)
	}
	return res.ModifiedCount, nil
}

func (m *MongoStore) UpdateManySet(ctx context.Context, name string, filter, set bson.D) (int64, error) {
	res, err := m.db.Collection(name).UpdateMany(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return 0, translate(err)
	}
	return res.ModifiedCount, nil
}

// translate marks server rejections of malformed query input with ErrBadQuery.
func translate(err error) error {
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorCode(codeBadValue) || se.HasErrorCode(codeFailedToParse)) {
		return fmt.Errorf("%w: %v", ErrBadQuery, err)
	}
	return err
}
