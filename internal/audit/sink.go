package audit

import (
	"context"
	"fmt"

	"github.com/docgate/docgate/internal/collection/repository"
	"go.mongodb.org/mongo-driver/bson"
)

// Sink persists audit records.
type Sink interface {
	Write(ctx context.Context, a Action) error
}

// StoreSink appends records to a collection of the document store. Records are
// written directly, so they carry no lifecycle metadata.
type StoreSink struct {
	store      repository.Store
	collection string
}

func NewStoreSink(store repository.Store, collection string) *StoreSink {
	return &StoreSink{store: store, collection: collection}
}

func (s *StoreSink) Write(ctx context.Context, a Action) error {
	raw, err := bson.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	var doc bson.D
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("encode audit record: %w", err)
	}
	if _, err := s.store.InsertOne(ctx, s.collection, doc); err != nil {
		return fmt.Errorf("write audit record: %w", err)
	}
	return nil
}
