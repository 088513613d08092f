// Package export writes the live documents of a collection to object storage
// as newline-delimited relaxed Extended JSON.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docgate/docgate/internal/collection"
	"github.com/docgate/docgate/internal/collection/service"
	"go.mongodb.org/mongo-driver/bson"
)

const contentType = "application/x-ndjson"

// ObjectStore is the subset of the object storage client an export needs.
type ObjectStore interface {
	UploadFile(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetPresignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Querier runs one strict page of a query.
type Querier interface {
	Query(ctx context.Context, name string, req service.QueryRequest) (*service.QueryResult, error)
}

type Request struct {
	Filter     collection.Value
	Projection collection.Value
	Sort       collection.Value
}

type Result struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
	URL   string `json:"url"`
}

type Exporter struct {
	docs    Querier
	objects ObjectStore
	expiry  time.Duration
	now     func() time.Time
}

func NewExporter(docs Querier, objects ObjectStore, expiry time.Duration) *Exporter {
	return &Exporter{docs: docs, objects: objects, expiry: expiry, now: time.Now}
}

// Export pages through the collection and uploads the result as one object.
// Without an explicit sort, pages are ordered by _id so they do not overlap.
func (e *Exporter) Export(ctx context.Context, name string, req Request) (*Result, error) {
	sortSpec := req.Sort
	if k := sortSpec.Kind(); k == collection.KindAbsent || k == collection.KindNull {
		sortSpec = collection.Object(bson.D{{Key: collection.FieldID, Value: 1}})
	}

	var buf bytes.Buffer
	count := 0
	for skip := int64(0); ; skip += service.MaxLimit {
		page, err := e.docs.Query(ctx, name, service.QueryRequest{
			Filter:     req.Filter,
			Projection: req.Projection,
			Sort:       sortSpec,
			Limit:      service.MaxLimit,
			Skip:       skip,
		})
		if err != nil {
			return nil, err
		}
		for _, doc := range page.Documents {
			line, err := bson.MarshalExtJSON(map[string]any(doc), false, false)
			if err != nil {
				return nil, fmt.Errorf("encode document: %w", err)
			}
			buf.Write(line)
			buf.WriteByte('\n')
		}
		count += page.Count
		if int64(page.Count) < service.MaxLimit {
			break
		}
	}

	key := fmt.Sprintf("exports/%s/%s.ndjson", name, e.now().UTC().Format("20060102T150405Z"))
	if err := e.objects.UploadFile(ctx, key, &buf, int64(buf.Len()), contentType); err != nil {
		return nil, collection.StoreError("export upload", err)
	}
	url, err := e.objects.GetPresignedURL(ctx, key, e.expiry)
	if err != nil {
		return nil, collection.StoreError("export presign", err)
	}
	return &Result{Key: key, Count: count, URL: url}, nil
}
