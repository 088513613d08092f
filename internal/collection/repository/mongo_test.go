package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("insert returns generated id", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := s.InsertOne(ctx, "items", bson.D{{Key: "name", Value: "a"}})
		require.NoError(mt, err)
		require.False(mt, id.IsZero())
	})

	mt.Run("find normalizes documents", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		id := primitive.NewObjectID()
		ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.items", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: id},
			{Key: "name", Value: "a"},
			{Key: "created_at", Value: primitive.NewDateTimeFromTime(ts)},
			{Key: "meta", Value: bson.D{{Key: "k", Value: "v"}}},
		}))

		docs, err := s.Find(ctx, "items", bson.D{}, FindOptions{Limit: 10})
		require.NoError(mt, err)
		require.Len(mt, docs, 1)
		got, ok := docs[0].ID()
		require.True(mt, ok)
		require.Equal(mt, id, got)
		require.Equal(mt, ts, docs[0]["created_at"])
		require.Equal(mt, map[string]any{"k": "v"}, docs[0]["meta"])
	})

	mt.Run("find one missing", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.items", mtest.FirstBatch))

		_, err := s.FindOne(ctx, "items", bson.D{{Key: "name", Value: "zzz"}})
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("find one and set returns post image", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: primitive.NewObjectID()},
			{Key: "name", Value: "b"},
		}}))

		doc, err := s.FindOneAndSet(ctx, "items", bson.D{{Key: "name", Value: "a"}}, bson.D{{Key: "name", Value: "b"}})
		require.NoError(mt, err)
		require.Equal(mt, "b", doc["name"])
	})

	mt.Run("find one and set without match", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := s.FindOneAndSet(ctx, "items", bson.D{{Key: "name", Value: "a"}}, bson.D{{Key: "x", Value: 1}})
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update many reports modified count", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 3},
			bson.E{Key: "nModified", Value: 3},
		))

		n, err := s.UpdateManySet(ctx, "items", bson.D{}, bson.D{{Key: "x", Value: 1}})
		require.NoError(mt, err)
		require.EqualValues(mt, 3, n)
	})

	mt.Run("collection names", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.$cmd.listCollections", mtest.FirstBatch,
			bson.D{{Key: "name", Value: "items"}, {Key: "type", Value: "collection"}},
			bson.D{{Key: "name", Value: "orders"}, {Key: "type", Value: "collection"}},
		))

		names, err := s.CollectionNames(ctx)
		require.NoError(mt, err)
		require.ElementsMatch(mt, []string{"items", "orders"}, names)
	})

	mt.Run("create conflict", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    codeNamespaceExists,
			Name:    "NamespaceExists",
			Message: "Collection already exists",
		}))

		require.ErrorIs(mt, s.CreateCollection(ctx, "items"), ErrCollectionExists)
	})

	mt.Run("rejected filter is a bad query", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    codeBadValue,
			Name:    "BadValue",
			Message: "unknown operator: $bogus",
		}))

		_, err := s.Find(ctx, "items", bson.D{{Key: "x", Value: bson.D{{Key: "$bogus", Value: 1}}}}, FindOptions{})
		require.ErrorIs(mt, err, ErrBadQuery)
	})

	mt.Run("other server errors pass through", func(mt *mtest.T) {
		s := NewMongoStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))

		_, err := s.UpdateOneSet(ctx, "items", bson.D{}, bson.D{{Key: "x", Value: 1}})
		require.Error(mt, err)
		require.NotErrorIs(mt, err, ErrBadQuery)
	})
}
