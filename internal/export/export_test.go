package export

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/docgate/docgate/internal/collection"
	"github.com/docgate/docgate/internal/collection/repository"
	"github.com/docgate/docgate/internal/collection/service"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

type fakeObjects struct {
	key         string
	body        []byte
	contentType string
	failUpload  bool
}

func (f *fakeObjects) UploadFile(_ context.Context, key string, r io.Reader, size int64, ct string) error {
	if f.failUpload {
		return errors.New("bucket gone")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(b)) != size {
		return fmt.Errorf("size mismatch: %d != %d", len(b), size)
	}
	f.key, f.body, f.contentType = key, b, ct
	return nil
}

func (f *fakeObjects) GetPresignedURL(_ context.Context, key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("http://objects.local/%s?expires=%d", key, int(expires.Seconds())), nil
}

func seed(t *testing.T, svc *service.Service, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		res, err := svc.Insert(context.Background(), "items", collection.Object(bson.D{{Key: "i", Value: int32(i)}}), nil)
		require.NoError(t, err)
		ids = append(ids, res.ID.Hex())
	}
	return ids
}

func TestExportPagesThroughLiveDocuments(t *testing.T) {
	svc := service.New(repository.NewMemoryStore())
	ids := seed(t, svc, 503)
	_, err := svc.DeleteByID(context.Background(), "items", ids[0], nil)
	require.NoError(t, err)

	objects := &fakeObjects{}
	e := NewExporter(svc, objects, 10*time.Minute)
	e.now = func() time.Time { return time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC) }

	res, err := e.Export(context.Background(), "items", Request{})
	require.NoError(t, err)
	require.Equal(t, 502, res.Count)
	require.Equal(t, "exports/items/20240601T083000Z.ndjson", res.Key)
	require.Equal(t, "http://objects.local/exports/items/20240601T083000Z.ndjson?expires=600", res.URL)
	require.Equal(t, contentType, objects.contentType)

	seen := map[int32]bool{}
	sc := bufio.NewScanner(bytes.NewReader(objects.body))
	for sc.Scan() {
		var doc bson.M
		require.NoError(t, bson.UnmarshalExtJSON(sc.Bytes(), false, &doc))
		require.NotContains(t, doc, collection.FieldDeletedAt)
		seen[doc["i"].(int32)] = true
	}
	require.NoError(t, sc.Err())
	require.Len(t, seen, 502)
	require.False(t, seen[0])
}

func TestExportRespectsFilterAndProjection(t *testing.T) {
	svc := service.New(repository.NewMemoryStore())
	seed(t, svc, 10)

	objects := &fakeObjects{}
	res, err := NewExporter(svc, objects, time.Minute).Export(context.Background(), "items", Request{
		Filter:     collection.Object(bson.D{{Key: "i", Value: bson.D{{Key: "$lt", Value: 3}}}}),
		Projection: collection.Object(bson.D{{Key: "i", Value: 1}, {Key: "_id", Value: 0}}),
		Sort:       collection.Object(bson.D{{Key: "i", Value: -1}}),
	})
	require.NoError(t, err)
	require.Equal(t, 3, res.Count)
	require.Equal(t, "{\"i\":2}\n{\"i\":1}\n{\"i\":0}\n", string(objects.body))
}

func TestExportErrors(t *testing.T) {
	svc := service.New(repository.NewMemoryStore())
	seed(t, svc, 1)

	_, err := NewExporter(svc, &fakeObjects{}, time.Minute).Export(context.Background(), "items", Request{Filter: collection.String("x")})
	require.Equal(t, collection.InvalidFilter, collection.KindOf(err))

	_, err = NewExporter(svc, &fakeObjects{failUpload: true}, time.Minute).Export(context.Background(), "items", Request{})
	require.Equal(t, collection.StoreUnavailable, collection.KindOf(err))
}
