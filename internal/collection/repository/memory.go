package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/docgate/docgate/internal/collection"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process Store used for tests and for running without
// MongoDB. Documents are kept in insertion order, which stands in for
// MongoDB's natural order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]bson.M)}
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }

func (m *MemoryStore) CollectionNames(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.collections))
	for name := range m.collections {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.collections[name]
	return ok, nil
}

func (m *MemoryStore) CreateCollection(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[name]; ok {
		return ErrCollectionExists
	}
	m.collections[name] = []bson.M{}
	return nil
}

func (m *MemoryStore) InsertOne(ctx context.Context, name string, doc bson.D) (primitive.ObjectID, error) {
	stored := bson.M{}
	for _, e := range doc {
		stored[e.Key] = deepCopy(e.Value)
	}
	id, ok := stored[collection.FieldID].(primitive.ObjectID)
	if !ok {
		id = primitive.NewObjectID()
		stored[collection.FieldID] = id
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[name] = append(m.collections[name], stored)
	return id, nil
}

func (m *MemoryStore) FindOne(ctx context.Context, name string, filter bson.D) (collection.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, doc := range m.collections[name] {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return collection.NewDocument(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) Find(ctx context.Context, name string, filter bson.D, o FindOptions) ([]collection.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var hits []bson.M
	for _, doc := range m.collections[name] {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			hits = append(hits, doc)
		}
	}
	if len(o.Sort) > 0 {
		sort.SliceStable(hits, func(i, j int) bool {
			return sortOrder(hits[i], hits[j], o.Sort) < 0
		})
	}
	if o.Skip >= int64(len(hits)) {
		hits = nil
	} else {
		hits = hits[o.Skip:]
	}
	if o.Limit > 0 && int64(len(hits)) > o.Limit {
		hits = hits[:o.Limit]
	}
	out := make([]collection.Document, 0, len(hits))
	for _, doc := range hits {
		out = append(out, collection.NewDocument(project(doc, o.Projection)))
	}
	return out, nil
}

func (m *MemoryStore) FindOneAndSet(ctx context.Context, name string, filter, set bson.D) (collection.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.collections[name] {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			applySet(doc, set)
			return collection.NewDocument(doc), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) UpdateOneSet(ctx context.Context, name string, filter, set bson.D) (int64, error) {
	return m.updateSet(name, filter, set, 1)
}

func (m *MemoryStore) UpdateManySet(ctx context.Context, name string, filter, set bson.D) (int64, error) {
	return m.updateSet(name, filter, set, 0)
}

// updateSet applies set to matching documents, at most max of them when max > 0.
func (m *MemoryStore) updateSet(name string, filter, set bson.D, max int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, doc := range m.collections[name] {
		ok, err := matches(doc, filter)
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		applySet(doc, set)
		n++
		if max > 0 && n >= max {
			break
		}
	}
	return n, nil
}

func applySet(doc bson.M, set bson.D) {
	for _, e := range set {
		setPath(doc, e.Key, deepCopy(e.Value))
	}
}

// deepCopy detaches stored values from caller-owned payloads. Nested
// documents are stored as bson.M so setPath can walk them.
func deepCopy(v any) any {
	switch t := v.(type) {
	case bson.D:
		m := bson.M{}
		for _, e := range t {
			m[e.Key] = deepCopy(e.Value)
		}
		return m
	case bson.M:
		m := bson.M{}
		for k, e := range t {
			m[k] = deepCopy(e)
		}
		return m
	case map[string]any:
		m := bson.M{}
		for k, e := range t {
			m[k] = deepCopy(e)
		}
		return m
	case bson.A:
		out := make(bson.A, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case []any:
		out := make(bson.A, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	}
	return v
}
