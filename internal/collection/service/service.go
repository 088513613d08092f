package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/docgate/docgate/internal/collection"
	"github.com/docgate/docgate/internal/collection/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultLimit int64 = 50
	MaxLimit     int64 = 500
)

// Service implements the collection access operations on top of a Store.
// Every operation validates its input before touching the store and reports
// its outcome to the registered observers once it returns.
type Service struct {
	store     repository.Store
	stamper   *collection.Stamper
	observers []Observer
}

type Option func(*Service)

// WithClock overrides the wall clock used for lifecycle metadata.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.stamper = collection.NewStamper(now) }
}

// WithObserver registers a post-operation hook.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

func New(store repository.Store, opts ...Option) *Service {
	s := &Service{store: store, stamper: collection.NewStamper(nil)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks that the underlying store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return collection.StoreError("ping", err)
	}
	return nil
}

type CreateResult struct {
	Name    string `json:"collection"`
	Created bool   `json:"created"`
}

type InsertResult struct {
	ID primitive.ObjectID `json:"insertedId"`
}

type QueryRequest struct {
	Filter     collection.Value
	Projection collection.Value
	Sort       collection.Value
	Limit      int64
	Skip       int64
}

type QueryResult struct {
	Count     int                   `json:"count"`
	Documents []collection.Document `json:"documents"`
}

// SearchRequest is the lenient browse form: Filter goes through the lenient
// normalizer and each Fields entry becomes an equality clause on a coerced value.
type SearchRequest struct {
	Filter collection.Value
	Fields map[string]string
	Limit  int64
	Skip   int64
}

type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}

func (s *Service) ListCollections(ctx context.Context) (names []string, err error) {
	defer s.track(ctx, OpListCollections, "", nil, time.Now(), func() int64 { return 0 }, &err)
	names, err = s.store.CollectionNames(ctx)
	if err != nil {
		return nil, collection.StoreError("list collections", err)
	}
	return names, nil
}

// CreateCollection is idempotent: an existing collection yields Created=false.
func (s *Service) CreateCollection(ctx context.Context, name string) (res *CreateResult, err error) {
	defer s.track(ctx, OpCreateCollection, name, nil, time.Now(), func() int64 { return 0 }, &err)
	if err := collection.ValidateName(name); err != nil {
		return nil, err
	}
	exists, err := s.store.CollectionExists(ctx, name)
	if err != nil {
		return nil, collection.StoreError("create collection", err)
	}
	if exists {
		return &CreateResult{Name: name, Created: false}, nil
	}
	if err := s.store.CreateCollection(ctx, name); err != nil {
		if errors.Is(err, repository.ErrCollectionExists) {
			return &CreateResult{Name: name, Created: false}, nil
		}
		return nil, collection.StoreError("create collection", err)
	}
	return &CreateResult{Name: name, Created: true}, nil
}

func (s *Service) Insert(ctx context.Context, name string, doc collection.Value, p *collection.Principal) (res *InsertResult, err error) {
	defer s.track(ctx, OpInsert, name, p, time.Now(), func() int64 { return boolCount(res != nil) }, &err)
	if err := collection.ValidateName(name); err != nil {
		return nil, err
	}
	fields, err := collection.WritableFields(doc)
	if err != nil {
		return nil, err
	}
	id, err := s.store.InsertOne(ctx, name, collection.Overlay(fields, s.stamper.Creation(p)))
	if err != nil {
		return nil, collection.StoreError("insert", err)
	}
	return &InsertResult{ID: id}, nil
}

// Patch merges updates into the live document with the given id and returns
// the post-update document. Fields the caller does not mention are untouched.
func (s *Service) Patch(ctx context.Context, name, id string, updates collection.Value, p *collection.Principal) (doc collection.Document, err error) {
	defer s.track(ctx, OpPatch, name, p, time.Now(), func() int64 { return boolCount(doc != nil) }, &err)
	if err := collection.ValidateName(name); err != nil {
		return nil, err
	}
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	fields, err := collection.WritableFields(updates)
	if err != nil {
		return nil, err
	}
	doc, err = s.store.FindOneAndSet(ctx, name, collection.ByID(oid), collection.Overlay(fields, s.stamper.Update(p)))
	if err != nil {
		return nil, storeErr("patch", err)
	}
	return doc, nil
}

// Query runs a strict, guarded, paginated find.
func (s *Service) Query(ctx context.Context, name string, req QueryRequest) (res *QueryResult, err error) {
	defer s.track(ctx, OpQuery, name, nil, time.Now(), func() int64 { return 0 }, &err)
	if err := collection.ValidateName(name); err != nil {
		return nil, err
	}
	filter, err := collection.RequireFilter(req.Filter)
	if err != nil {
		return nil, err
	}
	projection, err := collection.OptionalObject(req.Projection, "projection")
	if err != nil {
		return nil, err
	}
	sortSpec, err := collection.OptionalObject(req.Sort, "sort")
	if err != nil {
		return nil, err
	}
	return s.find(ctx, name, filter, repository.FindOptions{
		Projection: projection,
		Sort:       sortSpec,
		Limit:      ClampLimit(req.Limit),
		Skip:       clampSkip(req.Skip),
	})
}

// Search is the lenient browse path. A filter that cannot be decoded becomes
// the empty predicate instead of an error. Fields entries replace filter
// clauses on the same key.
func (s *Service) Search(ctx context.Context, name string, req SearchRequest) (res *QueryResult, err error) {
	defer s.track(ctx, OpSearch, name, nil, time.Now(), func() int64 { return 0 }, &err)
	if err := collection.ValidateName(name); err != nil {
		return nil, err
	}
	filter := collection.NormalizeFilter(req.Filter)
	if len(req.Fields) > 0 {
		keys := make([]string, 0, len(req.Fields))
		for k := range req.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			filter = setClause(filter, k, Coerce(req.Fields[k]))
		}
	}
	return s.find(ctx, name, filter, repository.FindOptions{
		Limit: ClampLimit(req.Limit),
		Skip:  clampSkip(req.Skip),
	})
}

func (s *Service) find(ctx context.Context, name string, filter bson.D, opts repository.FindOptions) (*QueryResult, error) {
	docs, err := s.store.Find(ctx, name, collection.Guard(filter), opts)
	if err != nil {
		return nil, storeErr("query", err)
	}
	return &QueryResult{Count: len(docs), Documents: docs}, nil
}

func (s *Service) GetByID(ctx context.Context, name, id string) (doc collection.Document, err error) {
	defer s.track(ctx, OpGet, name, nil, time.Now(), func() int64 { return 0 }, &err)
	if err := collection.ValidateName(name); err != nil {
		return nil, err
	}
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	doc, err = s.store.FindOne(ctx, name, collection.ByID(oid))
	if err != nil {
		return nil, storeErr("get", err)
	}
	return doc, nil
}

// DeleteByFilter soft-deletes every live document matching filter. Documents
// already deleted are not re-stamped.
func (s *Service) DeleteByFilter(ctx context.Context, name string, filter collection.Value, p *collection.Principal) (res *DeleteResult, err error) {
	defer s.track(ctx, OpDeleteByFilter, name, p, time.Now(), func() int64 { return deletedCount(res) }, &err)
	if err := collection.ValidateName(name); err != nil {
		return nil, err
	}
	f, err := collection.RequireFilter(filter)
	if err != nil {
		return nil, err
	}
	n, err := s.store.UpdateManySet(ctx, name, collection.Guard(f), s.stamper.Deletion(p))
	if err != nil {
		return nil, storeErr("delete", err)
	}
	return &DeleteResult{Deleted: n}, nil
}

// DeleteByID soft-deletes one live document. An absent or already deleted
// document is NotFound.
func (s *Service) DeleteByID(ctx context.Context, name, id string, p *collection.Principal) (res *DeleteResult, err error) {
	defer s.track(ctx, OpDeleteByID, name, p, time.Now(), func() int64 { return deletedCount(res) }, &err)
	if err := collection.ValidateName(name); err != nil {
		return nil, err
	}
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	n, err := s.store.UpdateOneSet(ctx, name, collection.ByID(oid), s.stamper.Deletion(p))
	if err != nil {
		return nil, storeErr("delete", err)
	}
	if n == 0 {
		return nil, collection.Errorf(collection.NotFound, "document not found")
	}
	return &DeleteResult{Deleted: n}, nil
}

// ClampLimit applies the default page size and the hard maximum.
func ClampLimit(limit int64) int64 {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

func clampSkip(skip int64) int64 {
	if skip < 0 {
		return 0
	}
	return skip
}

// Coerce turns a query-string value into the scalar it spells: booleans,
// null and numbers; anything else stays a string.
func Coerce(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	t := strings.TrimSpace(raw)
	if t == "" {
		return raw
	}
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return raw
}

func setClause(filter bson.D, key string, v any) bson.D {
	for i, e := range filter {
		if e.Key == key {
			out := append(bson.D{}, filter...)
			out[i].Value = v
			return out
		}
	}
	return append(append(bson.D{}, filter...), bson.E{Key: key, Value: v})
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, collection.Errorf(collection.InvalidID, "invalid id format")
	}
	return oid, nil
}

func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return collection.Errorf(collection.NotFound, "document not found")
	case errors.Is(err, repository.ErrBadQuery):
		return &collection.Error{Kind: collection.InvalidFilter, Message: "invalid query", Err: err}
	}
	return collection.StoreError(op, err)
}

func boolCount(ok bool) int64 {
	if ok {
		return 1
	}
	return 0
}

func deletedCount(res *DeleteResult) int64 {
	if res == nil {
		return 0
	}
	return res.Deleted
}
